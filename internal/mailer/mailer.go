// Package mailer renders and sends the storefront's transactional emails.
// Every send is best effort: failures are logged and counted, never
// returned to the caller.
package mailer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"oiko/internal/logger"
	"oiko/internal/metrics"
	"oiko/internal/models"
)

type Mailer struct {
	sender     Sender
	adminEmail string
	metrics    metrics.Recorder
	log        *zap.Logger
}

func New(sender Sender, adminEmail string, rec metrics.Recorder) *Mailer {
	return &Mailer{
		sender:     sender,
		adminEmail: adminEmail,
		metrics:    rec,
		log:        logger.Component("mailer"),
	}
}

func (m *Mailer) OrderReceived(ctx context.Context, order models.Order) {
	m.send(ctx, "order_received", order.CustomerInfo.Email, "Order received: "+order.OrderRef, order)
}

func (m *Mailer) PaymentConfirmed(ctx context.Context, order models.Order) {
	m.send(ctx, "payment_confirmed", order.CustomerInfo.Email, "Payment confirmed: "+order.OrderRef, order)
}

func (m *Mailer) OrderShipped(ctx context.Context, order models.Order) {
	m.send(ctx, "order_shipped", order.CustomerInfo.Email, "Your order has shipped: "+order.OrderRef, order)
}

func (m *Mailer) OrderDelivered(ctx context.Context, order models.Order) {
	m.send(ctx, "order_delivered", order.CustomerInfo.Email, "Your order has been delivered: "+order.OrderRef, order)
}

type rewardData struct {
	Name      string
	Email     string
	Points    int
	Tier      string
	ClaimedAt string
}

// RewardClaimed confirms the claim to the user and alerts the admin inbox.
func (m *Mailer) RewardClaimed(ctx context.Context, user models.User, claim models.RewardClaim) {
	data := rewardData{
		Name:      user.Name,
		Email:     user.Email,
		Points:    claim.Points,
		Tier:      claim.Tier,
		ClaimedAt: claim.ClaimedAt.Format(time.RFC1123),
	}
	m.send(ctx, "reward_claimed", user.Email, "Your Oiko reward claim", data)
	if m.adminEmail != "" {
		m.send(ctx, "reward_claimed_admin", m.adminEmail, "Reward claim from "+user.Email, data)
	}
}

func (m *Mailer) TrialReceived(ctx context.Context, trial models.TrialRequest) {
	m.send(ctx, "trial_received", trial.Email, "We received your trial request", trial)
}

func (m *Mailer) WelcomeSubscriber(ctx context.Context, email string) {
	m.send(ctx, "welcome_subscriber", email, "Welcome to Oiko", nil)
}

func (m *Mailer) send(ctx context.Context, name, to, subject string, data any) {
	if to == "" {
		m.log.Warn("email skipped, no recipient", zap.String("template", name))
		return
	}

	html, err := render(name, data)
	if err == nil {
		err = m.sender.Send(ctx, Message{To: []string{to}, Subject: subject, HTML: html, Text: subject})
	}
	m.metrics.EmailSent(name, err)
	if err != nil {
		m.log.Error("email failed", zap.String("template", name), zap.String("to", to), zap.Error(err))
		return
	}
	m.log.Info("email sent", zap.String("template", name), zap.String("to", to))
}
