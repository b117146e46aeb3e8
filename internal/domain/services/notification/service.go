// Package notification sends transactional email for verification and
// investment lifecycle events. Delivery is best-effort: a failed send is
// logged and retried, never propagated into the calling flow.
package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/shopspring/decimal"

	"github.com/chainvest-service/chainvest_service/internal/infrastructure/config"
	"github.com/chainvest-service/chainvest_service/pkg/logger"
	"github.com/chainvest-service/chainvest_service/pkg/retry"
)

// Service sends lifecycle notifications
type Service struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	opsEmail  string
	retrier   *retry.Retrier
	logger    *logger.Logger
}

// NewService creates a notification service. With no provider configured it
// degrades to log-only delivery, which is the development default.
func NewService(cfg config.EmailConfig, log *logger.Logger) *Service {
	var client *sendgrid.Client
	if strings.EqualFold(cfg.Provider, "sendgrid") && cfg.APIKey != "" {
		client = sendgrid.NewSendClient(cfg.APIKey)
	}

	return &Service{
		client:    client,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		opsEmail:  cfg.OpsEmail,
		retrier:   retry.NewRetrier(retry.DefaultPolicy(), log.Zap()),
		logger:    log,
	}
}

// NotifyDepositConfirmed tells the user their deposit was verified
func (s *Service) NotifyDepositConfirmed(ctx context.Context, to string, txHash string, amount decimal.Decimal, currency string) {
	subject := "Your deposit has been confirmed"
	body := fmt.Sprintf(
		"Your deposit of %s %s was confirmed on-chain (transaction %s) and credited to your account.",
		amount, currency, txHash,
	)
	s.send(ctx, to, subject, body)
}

// NotifyDepositFailed tells the user their deposit could not be verified
func (s *Service) NotifyDepositFailed(ctx context.Context, to string) {
	subject := "Your deposit could not be verified"
	body := "We could not find your transfer on-chain within the verification window. " +
		"If you already sent the funds, please contact support with your transaction hash."
	s.send(ctx, to, subject, body)
}

// NotifyPositionMatured tells the user an investment reached its target
func (s *Service) NotifyPositionMatured(ctx context.Context, to string, planName string, value decimal.Decimal) {
	subject := "Your investment has matured"
	body := fmt.Sprintf(
		"Your %s plan investment has completed and %s USD was credited to your balance.",
		planName, value,
	)
	s.send(ctx, to, subject, body)
}

// NotifyHashConflict alerts operations that two intents raced onto the same
// on-chain transaction and one was failed for manual review
func (s *Service) NotifyHashConflict(ctx context.Context, intentID uuid.UUID, txHash string) {
	if s.opsEmail == "" {
		s.logger.Warn("Hash conflict requires manual review (no ops email configured)",
			"intent_id", intentID, "tx_hash", txHash)
		return
	}
	subject := "Duplicate transaction hash conflict"
	body := fmt.Sprintf(
		"Intent %s was failed because transaction %s is already claimed by another intent. Manual review required.",
		intentID, txHash,
	)
	s.send(ctx, s.opsEmail, subject, body)
}

func (s *Service) send(ctx context.Context, to, subject, body string) {
	if s.client == nil {
		s.logger.Info("Email delivery skipped (no provider)", "to", to, "subject", subject)
		return
	}

	err := s.retrier.Do(ctx, func() error {
		from := mail.NewEmail(s.fromName, s.fromEmail)
		message := mail.NewSingleEmail(from, subject, mail.NewEmail("", to), body, "")

		response, err := s.client.SendWithContext(ctx, message)
		if err != nil {
			return err
		}
		if response.StatusCode >= 400 {
			return fmt.Errorf("email provider returned status %d", response.StatusCode)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to send notification email",
			"to", to,
			"subject", subject,
			"error", err)
	}
}
