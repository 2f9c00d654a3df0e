// Package mail delivers authentication email (one-time codes, password
// reset links) over SMTP with STARTTLS and bounded retries.
package mail
