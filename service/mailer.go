package service

import (
	"context"
	"pharmacy-api/logger"

	"github.com/sirupsen/logrus"
)

// Mailer delivers account emails. Delivery is a collaborator concern; the
// auth flow only needs the contract.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, email, token string) error
}

// LogMailer writes the verification token to the log instead of sending
// mail. Used in development and tests.
type LogMailer struct{}

func (m *LogMailer) SendVerificationEmail(_ context.Context, email, token string) error {
	logger.Log.WithFields(logrus.Fields{
		"email": email,
		"token": token,
	}).Info("Verification email (log delivery)")
	return nil
}
