// Package mail renders and sends the per-student work notification mails
// produced by recipients.Plan.
package mail
