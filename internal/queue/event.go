// Package queue defines message payloads exchanged over the message broker
// and the background consumer that delivers them.
package queue

import "time"

// RecoveryMailQueue is the durable queue carrying recovery notifications.
const RecoveryMailQueue = "auth.recovery_mail"

// RecoveryMailEvent is published when a recovery token is issued. It carries
// everything the mail worker needs to render the message without touching
// the primary database. The token value is the raw opaque value; the queue
// is the trusted delivery channel to the mailer.
type RecoveryMailEvent struct {
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expires_at"`
	RequestedAt time.Time `json:"requested_at"`
}
