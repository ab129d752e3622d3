package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkarpenko/slotbot/pkg/domain"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"plain ten digits", "9123456789", "9123456789", false},
		{"leading eight", "89123456789", "9123456789", false},
		{"leading seven with plus", "+79123456789", "9123456789", false},
		{"leading seven without plus", "79123456789", "9123456789", false},
		{"formatted", "+7 (912) 345-67-89", "9123456789", false},
		{"spaces and dashes", " 8 912 345-67-89 ", "9123456789", false},
		{"too short", "12345", "", true},
		{"too long", "791234567890", "", true},
		{"eleven digits without country code", "99123456789", "", true},
		{"ten digits starting with country digit", "8123456789", "", true},
		{"no digits", "abc", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizePhone(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLeadDate(t *testing.T) {
	want := time.Now().AddDate(0, 0, 16).Format("02.01")
	assert.Equal(t, want, leadDate(14, 2))
}

func TestCollapseWeekdays(t *testing.T) {
	tests := []struct {
		name string
		days []string
		want string
	}{
		{"all seven", []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}, "daily"},
		{"workdays", []string{"mon", "tue", "wed", "thu", "fri"}, "weekdays"},
		{"weekend", []string{"sat", "sun"}, "weekends"},
		{"weekend reversed", []string{"sun", "sat"}, "weekends"},
		{"custom sorted by weekday order", []string{"fri", "mon"}, "custom:mon,fri"},
		{"custom single", []string{"wed"}, "custom:wed"},
		{"duplicates collapse", []string{"mon", "mon", "tue"}, "custom:mon,tue"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, collapseWeekdays(tt.days))
		})
	}
}

func TestWeekdaysLabel(t *testing.T) {
	assert.Equal(t, "Ежедневно", weekdaysLabel("daily"))
	assert.Equal(t, "Будни", weekdaysLabel("weekdays"))
	assert.Equal(t, "Выходные", weekdaysLabel("weekends"))
	assert.Equal(t, "Пн, Пт", weekdaysLabel("custom:mon,fri"))
	assert.Equal(t, "unknown", weekdaysLabel("unknown"))
}

func TestLogisticsLabel(t *testing.T) {
	assert.Equal(t, "до 15%", logisticsLabel(15))
	assert.Equal(t, "Любой", logisticsLabel(9999))
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "Активна", statusLabel("active"))
	assert.Equal(t, "Активна", statusLabel("RUNNING"))
	assert.Equal(t, "Остановлена", statusLabel("stopped"))
	assert.Equal(t, "Завершена", statusLabel("completed"))
	assert.Equal(t, "weird", statusLabel("weird"))
}

func TestPageTitle(t *testing.T) {
	assert.Equal(t, "Страница 1 из 3", pageTitle(0, 3))
	assert.Equal(t, "Страница 3 из 3", pageTitle(2, 3))
}

func TestSlotTaskCard(t *testing.T) {
	logistics := 10
	card := slotTaskCard(domain.SlotTask{
		ID:           7,
		Warehouse:    "Коледино",
		SupplyType:   "Короба",
		MaxCoef:      3,
		MaxLogistics: &logistics,
		Weekdays:     "daily",
		LeadTimeDays: 2,
		Status:       "active",
	})
	assert.Contains(t, card, "Задача поиска слота #7")
	assert.Contains(t, card, "Склад: Коледино")
	assert.Contains(t, card, "Логистика: до 10%")
	assert.Contains(t, card, "Дни недели: Ежедневно")
	assert.Contains(t, card, "Статус: Активна")
}

func TestDraftLine(t *testing.T) {
	assert.Equal(t, "Осенняя поставка (12 тов.)", draftLine(domain.Draft{ID: 1, Name: "Осенняя поставка", GoodQty: 12}))
	assert.Equal(t, "Черновик 4", draftLine(domain.Draft{ID: 4}))
}
