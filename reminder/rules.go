// Package reminder computes due dates for recurring obligations and
// dispatches templated notices across channels.
package reminder

import (
	"fmt"

	"revenue-svc/notify"
)

type Kind string

const (
	KindUpcoming Kind = "upcoming"
	KindOverdue  Kind = "overdue"
)

// Rule fires on exactly one calendar day per renewal cycle: the day on
// which days-until-due equals DaysBefore. DaysBefore is signed; negative
// means overdue by that many days.
type Rule struct {
	DaysBefore int
	Kind       Kind
	Template   string
	Channels   []string
}

// ReminderType is the de-duplication key component, e.g. "upcoming_7_days".
func (r Rule) ReminderType() string {
	days := r.DaysBefore
	if days < 0 {
		days = -days
	}
	return fmt.Sprintf("%s_%d_days", r.Kind, days)
}

// DefaultRules are the five shipped offsets. The -30 rule is the final
// notice with an escalated tone.
var DefaultRules = []Rule{
	{
		DaysBefore: 7,
		Kind:       KindUpcoming,
		Template:   "Dear {payer_name}, your {service_name} payment of NGN {amount} for {revenue_type} is due in 7 days. Renew on time to avoid late fees.",
		Channels:   []string{notify.ChannelSMS, notify.ChannelEmail},
	},
	{
		DaysBefore: 1,
		Kind:       KindUpcoming,
		Template:   "Dear {payer_name}, your {service_name} payment of NGN {amount} for {revenue_type} is due tomorrow. Renew now to stay compliant.",
		Channels:   []string{notify.ChannelSMS, notify.ChannelWhatsApp},
	},
	{
		DaysBefore: 0,
		Kind:       KindUpcoming,
		Template:   "Dear {payer_name}, your {service_name} payment of NGN {amount} for {revenue_type} is due today. Pay now to avoid penalties.",
		Channels:   []string{notify.ChannelSMS, notify.ChannelEmail, notify.ChannelWhatsApp},
	},
	{
		DaysBefore: -7,
		Kind:       KindOverdue,
		Template:   "Dear {payer_name}, your {service_name} payment of NGN {amount} for {revenue_type} is 7 days overdue. A late fee of NGN {late_fee} now applies. Please settle immediately.",
		Channels:   []string{notify.ChannelSMS, notify.ChannelEmail},
	},
	{
		DaysBefore: -30,
		Kind:       KindOverdue,
		Template:   "FINAL NOTICE: {payer_name}, your {service_name} payment of NGN {amount} for {revenue_type} is 30 days overdue. A late fee of NGN {late_fee} applies and enforcement action may follow. Settle immediately to avoid further action.",
		Channels:   []string{notify.ChannelSMS, notify.ChannelEmail, notify.ChannelWhatsApp},
	},
}
