package reminder

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"revenue-svc/circuitbreaker"
	"revenue-svc/database"
	"revenue-svc/middleware"
	"revenue-svc/models"
	"revenue-svc/notify"
)

// ClaimGuard is the atomic de-duplication claim (redis SETNX with a 24h TTL).
type ClaimGuard interface {
	Claim(ctx context.Context, paymentID int, reminderType string, day time.Time) (bool, error)
}

const (
	dispatchTimeout     = 10 * time.Second
	breakerMaxFailures  = 3
	breakerResetTimeout = 30 * time.Second
	dedupWindow         = 24 * time.Hour
	dueObligationsQuery = `SELECT p.id, p.reference, p.payer_name, COALESCE(p.payer_phone, ''), COALESCE(p.payer_email, ''), p.amount, p.revenue_type_code, rt.name, rt.renewal_period_days, p.confirmed_at FROM payments p JOIN revenue_types rt ON rt.code = p.revenue_type_code WHERE p.status = 'confirmed' AND rt.is_recurring = TRUE`
)

// obligation is one recurring confirmed payment joined to its revenue type.
type obligation struct {
	paymentID       int
	reference       string
	payerName       string
	payerPhone      string
	payerEmail      string
	amount          float64
	revenueTypeCode string
	revenueTypeName string
	renewalDays     int
	confirmedAt     time.Time
}

// Scheduler runs one reminder batch per external trigger. A single
// payment's failure never aborts the run.
type Scheduler struct {
	db       *sql.DB
	guard    ClaimGuard
	channels map[string]notify.Channel
	breakers map[string]*circuitbreaker.CircuitBreaker
	rules    []Rule
	now      func() time.Time
	logger   *zap.Logger
}

func NewScheduler(db *sql.DB, guard ClaimGuard, channels []notify.Channel, logger *zap.Logger) *Scheduler {
	chmap := make(map[string]notify.Channel, len(channels))
	breakers := make(map[string]*circuitbreaker.CircuitBreaker, len(channels))
	for _, ch := range channels {
		chmap[ch.Name()] = ch
		breakers[ch.Name()] = circuitbreaker.NewCircuitBreaker(breakerMaxFailures, breakerResetTimeout)
	}
	return &Scheduler{
		db:       db,
		guard:    guard,
		channels: chmap,
		breakers: breakers,
		rules:    DefaultRules,
		now:      time.Now,
		logger:   logger,
	}
}

// Run scans recurring confirmed payments and dispatches every rule whose
// offset matches today exactly. It returns the number of rule firings with
// at least one delivered channel.
func (s *Scheduler) Run(ctx context.Context) (int, error) {
	ctx, span := otel.Tracer("revenue-service").Start(ctx, "ReminderRun")
	defer span.End()

	rows, err := s.db.QueryContext(ctx, dueObligationsQuery)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to query recurring payments: %w", err)
	}
	defer rows.Close()

	today := startOfDay(s.now().UTC())
	total := 0

	for rows.Next() {
		var o obligation
		var confirmedAt sql.NullTime
		if err := rows.Scan(
			&o.paymentID, &o.reference, &o.payerName, &o.payerPhone, &o.payerEmail,
			&o.amount, &o.revenueTypeCode, &o.revenueTypeName, &o.renewalDays, &confirmedAt,
		); err != nil {
			s.logger.Error("Failed to scan payment row", zap.Error(err))
			continue
		}
		if !confirmedAt.Valid {
			continue
		}
		o.confirmedAt = confirmedAt.Time

		days := daysUntilDue(o.confirmedAt, o.renewalDays, today)
		for _, rule := range s.rules {
			if days != rule.DaysBefore {
				continue
			}
			if s.dispatch(ctx, o, rule, today) {
				total++
			}
		}
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return total, fmt.Errorf("failed to iterate payments: %w", err)
	}

	span.SetAttributes(attribute.Int("reminders.sent", total))
	s.logger.Info("Reminder run complete", zap.Int("total_reminders_sent", total))
	return total, nil
}

// target is one reachable channel for a rule firing.
type target struct {
	channel     notify.Channel
	destination string
}

// dispatch sends one rule firing for one payment across its channels.
// Channels are isolated: one transport's failure never blocks the others.
func (s *Scheduler) dispatch(ctx context.Context, o obligation, rule Rule, today time.Time) bool {
	reminderType := rule.ReminderType()

	// Resolve reachable channels before claiming the de-duplication window.
	// A payment with no usable contact must not burn the day's claim on zero
	// attempts; once the contact data is fixed, the next run can still send.
	targets := make([]target, 0, len(rule.Channels))
	for _, name := range rule.Channels {
		ch, exists := s.channels[name]
		if !exists {
			continue
		}
		destination := s.destinationFor(o, name)
		if destination == "" {
			s.logger.Warn("No destination for channel, skipping",
				zap.Int("payment_id", o.paymentID), zap.String("channel", name))
			continue
		}
		targets = append(targets, target{channel: ch, destination: destination})
	}
	if len(targets) == 0 {
		s.logger.Warn("No reachable channel for payment",
			zap.Int("payment_id", o.paymentID),
			zap.String("reminder_type", reminderType))
		return false
	}

	ok, err := s.claim(ctx, o.paymentID, reminderType, today)
	if err != nil {
		s.logger.Error("De-duplication check failed, skipping",
			zap.Int("payment_id", o.paymentID),
			zap.String("reminder_type", reminderType),
			zap.Error(err))
		return false
	}
	if !ok {
		s.logger.Debug("Reminder already sent within window",
			zap.Int("payment_id", o.paymentID),
			zap.String("reminder_type", reminderType))
		return false
	}

	message := Render(rule.Template, Vars{
		PayerName:   o.payerName,
		ServiceName: o.revenueTypeName,
		RevenueType: o.revenueTypeCode,
		Amount:      o.amount,
	})

	delivered := false
	for _, tg := range targets {
		name := tg.channel.Name()

		cctx, cancel := context.WithTimeout(ctx, dispatchTimeout)
		sendErr := s.breakers[name].Execute(cctx, func() error {
			return tg.channel.Send(cctx, tg.destination, message)
		})
		cancel()

		channelDelivered := sendErr == nil
		if channelDelivered {
			delivered = true
		} else {
			s.logger.Warn("Reminder dispatch failed",
				zap.Int("payment_id", o.paymentID),
				zap.String("channel", name),
				zap.String("reminder_type", reminderType),
				zap.Error(sendErr))
		}
		middleware.RecordReminderDispatch(reminderType, name, channelDelivered)

		if err := s.record(ctx, o.paymentID, reminderType, name, channelDelivered, today); err != nil {
			s.logger.Error("Failed to record reminder", zap.Error(err))
		}
	}

	if delivered {
		s.logger.Info("Reminder sent",
			zap.Int("payment_id", o.paymentID),
			zap.String("reference", o.reference),
			zap.String("reminder_type", reminderType))
	}
	return delivered
}

// claim wins the 24h de-duplication window for a (payment, reminder type)
// pair. The redis SETNX claim is atomic; when redis is unavailable the
// fallback is a trailing-window read of the reminders table, with the
// unique day-bucket index as the last line against double-recording.
func (s *Scheduler) claim(ctx context.Context, paymentID int, reminderType string, today time.Time) (bool, error) {
	if s.guard != nil {
		ok, err := s.guard.Claim(ctx, paymentID, reminderType, today)
		if err == nil {
			return ok, nil
		}
		s.logger.Warn("Redis claim failed, falling back to store check", zap.Error(err))
	}

	exists, err := database.HasRecentReminder(ctx, s.db, paymentID, reminderType, s.now().Add(-dedupWindow))
	if err != nil {
		return false, err
	}
	return !exists, nil
}

func (s *Scheduler) record(ctx context.Context, paymentID int, reminderType, channel string, delivered bool, today time.Time) error {
	return database.InsertReminder(ctx, s.db, models.ReminderRecord{
		ID:           uuid.New().String(),
		PaymentID:    paymentID,
		ReminderType: reminderType,
		Channel:      channel,
		SentAt:       s.now(),
		Delivered:    delivered,
		DayBucket:    today,
	})
}

func (s *Scheduler) destinationFor(o obligation, channel string) string {
	switch channel {
	case notify.ChannelSMS, notify.ChannelWhatsApp:
		return o.payerPhone
	case notify.ChannelEmail:
		return o.payerEmail
	}
	return ""
}

// daysUntilDue is the calendar-day distance from today to the next renewal:
// confirmed_at plus the renewal period, on date boundaries.
func daysUntilDue(confirmedAt time.Time, renewalDays int, today time.Time) int {
	next := startOfDay(confirmedAt.UTC()).AddDate(0, 0, renewalDays)
	return int(next.Sub(today).Hours() / 24)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
