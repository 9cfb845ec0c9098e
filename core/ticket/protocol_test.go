package ticket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewProtocol(t *testing.T) {
	now := time.Date(2024, 3, 15, 23, 30, 0, 0, time.FixedZone("BRT", -3*3600))
	p := NewProtocol(now)
	assert.Regexp(t, `^20240316-[0-9A-F]{6}$`, p) // UTC date
	assert.True(t, ValidProtocol(p))
	assert.NotEqual(t, p, NewProtocol(now))
}

func TestValidProtocol(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"20240315-A1B2C3", true},
		{"20240315-a1b2c3", false},
		{"20241315-A1B2C3", false},
		{"20240315A1B2C3", false},
		{"20240315-A1B2C", false},
		{"20240315-G1B2C3", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidProtocol(tt.in), tt.in)
	}
}

func TestAddBusinessDays(t *testing.T) {
	fri := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	sat := time.Date(2024, 3, 16, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		from time.Time
		days int
		want time.Time
	}{
		{"zero", fri, 0, fri},
		{"over weekend", fri, 1, time.Date(2024, 3, 18, 10, 0, 0, 0, time.UTC)},
		{"ten", fri, 10, time.Date(2024, 3, 29, 10, 0, 0, 0, time.UTC)},
		{"fifteen", fri, 15, time.Date(2024, 4, 5, 10, 0, 0, 0, time.UTC)},
		{"from saturday", sat, 1, time.Date(2024, 3, 18, 10, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AddBusinessDays(tt.from, tt.days)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.days, BusinessDaysBetween(tt.from, got))
		})
	}
}

func TestDeadlineText(t *testing.T) {
	assert.Equal(t, "até 1 dia útil", DeadlineText(1))
	assert.Equal(t, "até 10 dias úteis", DeadlineText(10))
}

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusNew, StatusAnalyzing, true},
		{StatusNew, StatusAnswered, true},
		{StatusNew, StatusClosed, true},
		{StatusAnalyzing, StatusAnswered, true},
		{StatusAnswered, StatusClosed, true},
		{StatusAnswered, StatusAnalyzing, false},
		{StatusClosed, StatusNew, false},
		{StatusNew, StatusNew, false},
		{StatusNew, "ARQUIVADO", false},
		{"", StatusNew, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestTicket_Receipt(t *testing.T) {
	created := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	tk := Ticket{Protocol: "20240315-A1B2C3", CreatedAt: created, Deadline: AddBusinessDays(created, 10)}
	assert.Equal(t, Receipt{
		Protocol:     "20240315-A1B2C3",
		DeadlineText: "até 10 dias úteis",
		Deadline:     "29/03/2024",
	}, tk.Receipt())
	assert.True(t, tk.IsAnonymous())
}
