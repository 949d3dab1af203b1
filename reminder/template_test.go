package reminder

import (
	"strings"
	"testing"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		amount float64
		want   string
	}{
		{0, "0"},
		{500, "500"},
		{7500, "7,500"},
		{75000, "75,000"},
		{1234567, "1,234,567"},
		{-12000, "-12,000"},
	}

	for _, tt := range tests {
		if got := FormatAmount(tt.amount); got != tt.want {
			t.Errorf("FormatAmount(%v) = %q, want %q", tt.amount, got, tt.want)
		}
	}
}

func TestLateFee(t *testing.T) {
	if got := LateFee(75000); got != 7500 {
		t.Errorf("LateFee(75000) = %v, want 7500", got)
	}
	if got := LateFee(12345); got != 1235 {
		t.Errorf("LateFee(12345) = %v, want 1235 (rounded)", got)
	}
}

func TestRender_SubstitutesAllPlaceholders(t *testing.T) {
	template := "Dear {payer_name}, {service_name} of NGN {amount} for {revenue_type}; late fee NGN {late_fee}."
	got := Render(template, Vars{
		PayerName:   "Amina Bello",
		ServiceName: "Business Premises Levy",
		RevenueType: "BPL",
		Amount:      75000,
	})

	want := "Dear Amina Bello, Business Premises Levy of NGN 75,000 for BPL; late fee NGN 7,500."
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestRenderDefaultOverdueTemplateCarriesLateFee(t *testing.T) {
	var overdue Rule
	for _, rule := range DefaultRules {
		if rule.DaysBefore == -7 {
			overdue = rule
		}
	}

	got := Render(overdue.Template, Vars{
		PayerName:   "Amina Bello",
		ServiceName: "Business Premises Levy",
		RevenueType: "BPL",
		Amount:      75000,
	})

	if !strings.Contains(got, "NGN 7,500") {
		t.Errorf("overdue message missing late fee, got %q", got)
	}
}

func TestReminderType(t *testing.T) {
	tests := []struct {
		rule Rule
		want string
	}{
		{Rule{DaysBefore: 7, Kind: KindUpcoming}, "upcoming_7_days"},
		{Rule{DaysBefore: 0, Kind: KindUpcoming}, "upcoming_0_days"},
		{Rule{DaysBefore: -30, Kind: KindOverdue}, "overdue_30_days"},
	}

	for _, tt := range tests {
		if got := tt.rule.ReminderType(); got != tt.want {
			t.Errorf("ReminderType() = %q, want %q", got, tt.want)
		}
	}
}

func TestDefaultRules_ShippedOffsets(t *testing.T) {
	want := map[int]Kind{
		7:   KindUpcoming,
		1:   KindUpcoming,
		0:   KindUpcoming,
		-7:  KindOverdue,
		-30: KindOverdue,
	}

	if len(DefaultRules) != len(want) {
		t.Fatalf("expected %d rules, got %d", len(want), len(DefaultRules))
	}
	for _, rule := range DefaultRules {
		kind, ok := want[rule.DaysBefore]
		if !ok {
			t.Errorf("unexpected rule offset %d", rule.DaysBefore)
			continue
		}
		if rule.Kind != kind {
			t.Errorf("offset %d: expected kind %s, got %s", rule.DaysBefore, kind, rule.Kind)
		}
		if len(rule.Channels) == 0 {
			t.Errorf("offset %d: rule has no channels", rule.DaysBefore)
		}
	}
}
