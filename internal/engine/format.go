package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vkarpenko/slotbot/pkg/domain"
)

// Supply types in menu order. Keys travel in callback data, labels go to the
// backend and to the user.
var supplyTypeKeys = []string{"box", "mono", "postal", "safe"}

var supplyTypeLabels = map[string]string{
	"box":    "Короба",
	"mono":   "Монопаллеты",
	"postal": "Поштучная паллета",
	"safe":   "Суперсейф",
}

// Weekdays in keyboard order.
var weekdayKeys = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

var weekdayLabels = map[string]string{
	"mon": "Пн",
	"tue": "Вт",
	"wed": "Ср",
	"thu": "Чт",
	"fri": "Пт",
	"sat": "Сб",
	"sun": "Вс",
}

var weekdayOrder = map[string]int{
	"mon": 1, "tue": 2, "wed": 3, "thu": 4, "fri": 5, "sat": 6, "sun": 7,
}

var statusLabels = map[string]string{
	"active":    "Активна",
	"running":   "Активна",
	"stopped":   "Остановлена",
	"paused":    "Остановлена",
	"done":      "Завершена",
	"completed": "Завершена",
	"error":     "Ошибка",
}

func statusLabel(status string) string {
	if label, ok := statusLabels[strings.ToLower(status)]; ok {
		return label
	}
	return status
}

// normalizePhone reduces user input to the ten significant digits of a
// Russian mobile number. One leading country digit (8 or 7) is stripped.
func normalizePhone(raw string) (string, error) {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	s := digits.String()
	if len(s) > 0 && (s[0] == '8' || s[0] == '7') {
		s = s[1:]
	}
	if len(s) != 10 {
		return "", fmt.Errorf("phone must contain 10 digits, got %d", len(s))
	}
	return s, nil
}

// leadDate renders the earliest possible supply date for a lead-time option:
// today plus the search period plus the preparation offset.
func leadDate(period, offset int) string {
	return time.Now().AddDate(0, 0, period+offset).Format("02.01")
}

// collapseWeekdays folds a day selection into the compact wire form:
// daily, weekdays, weekends, or custom:<sorted keys>.
func collapseWeekdays(days []string) string {
	set := make(map[string]bool, len(days))
	for _, d := range days {
		set[d] = true
	}

	switch {
	case len(set) == 7:
		return "daily"
	case len(set) == 5 && set["mon"] && set["tue"] && set["wed"] && set["thu"] && set["fri"]:
		return "weekdays"
	case len(set) == 2 && set["sat"] && set["sun"]:
		return "weekends"
	}

	sorted := make([]string, 0, len(set))
	for d := range set {
		sorted = append(sorted, d)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return weekdayOrder[sorted[i]] < weekdayOrder[sorted[j]]
	})
	return "custom:" + strings.Join(sorted, ",")
}

// weekdaysLabel renders the wire form back into readable text.
func weekdaysLabel(wire string) string {
	switch {
	case wire == "daily":
		return "Ежедневно"
	case wire == "weekdays":
		return "Будни"
	case wire == "weekends":
		return "Выходные"
	case strings.HasPrefix(wire, "custom:"):
		keys := strings.Split(strings.TrimPrefix(wire, "custom:"), ",")
		labels := make([]string, 0, len(keys))
		for _, k := range keys {
			if l, ok := weekdayLabels[k]; ok {
				labels = append(labels, l)
			}
		}
		return strings.Join(labels, ", ")
	}
	return wire
}

func logisticsLabel(percent int) string {
	if percent >= 9999 {
		return "Любой"
	}
	return fmt.Sprintf("до %d%%", percent)
}

func slotTaskLine(t domain.SlotTask) string {
	return fmt.Sprintf("#%d %s, %s, коэф. до %d (%s)",
		t.ID, t.Warehouse, t.SupplyType, t.MaxCoef, statusLabel(t.Status))
}

func slotTaskCard(t domain.SlotTask) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Задача поиска слота #%d\n\n", t.ID)
	fmt.Fprintf(&b, "Склад: %s\n", t.Warehouse)
	fmt.Fprintf(&b, "Тип поставки: %s\n", t.SupplyType)
	fmt.Fprintf(&b, "Макс. коэффициент: %d\n", t.MaxCoef)
	if t.MaxLogistics != nil {
		fmt.Fprintf(&b, "Логистика: %s\n", logisticsLabel(*t.MaxLogistics))
	}
	if t.DateFrom != "" || t.DateTo != "" {
		fmt.Fprintf(&b, "Период: %s — %s\n", t.DateFrom, t.DateTo)
	}
	fmt.Fprintf(&b, "Дни недели: %s\n", weekdaysLabel(t.Weekdays))
	fmt.Fprintf(&b, "Срок до поставки: %d дн.\n", t.LeadTimeDays)
	fmt.Fprintf(&b, "Статус: %s", statusLabel(t.Status))
	return b.String()
}

func autobookTaskLine(t domain.AutobookTask) string {
	return fmt.Sprintf("#%d %s, %s (%s)", t.ID, t.Warehouse, t.SupplyType, statusLabel(t.Status))
}

func autobookTaskCard(t domain.AutobookTask) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Автобронирование #%d\n\n", t.ID)
	fmt.Fprintf(&b, "Склад: %s\n", t.Warehouse)
	fmt.Fprintf(&b, "Тип поставки: %s\n", t.SupplyType)
	if t.SlotTaskID != 0 {
		fmt.Fprintf(&b, "Поиск слота: #%d\n", t.SlotTaskID)
	}
	fmt.Fprintf(&b, "Статус: %s", statusLabel(t.Status))
	return b.String()
}

func moveTaskLine(t domain.MoveTask) string {
	return fmt.Sprintf("#%d %s: %s → %s, %d шт. (%s)",
		t.ID, t.Article, t.FromWarehouse, t.ToWarehouse, t.Qty, statusLabel(t.Status))
}

func moveTaskCard(t domain.MoveTask) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Перераспределение #%d\n\n", t.ID)
	fmt.Fprintf(&b, "Артикул: %s\n", t.Article)
	fmt.Fprintf(&b, "Откуда: %s\n", t.FromWarehouse)
	fmt.Fprintf(&b, "Куда: %s\n", t.ToWarehouse)
	fmt.Fprintf(&b, "Количество: %d шт.\n", t.Qty)
	fmt.Fprintf(&b, "Статус: %s", statusLabel(t.Status))
	return b.String()
}

func historyLine(taskType string, it domain.HistoryItem) string {
	if taskType == "auto_booking" {
		return fmt.Sprintf("#%d %s, черновик %d (%s)", it.ID, it.SellerName, it.DraftID, it.CreatedAt)
	}
	line := fmt.Sprintf("#%d %s, %s (%s)", it.ID, it.Warehouse, it.SupplyType, statusLabel(it.Status))
	if it.Found > 0 {
		line += fmt.Sprintf(", найдено слотов: %d", it.Found)
	}
	return line
}

func slotRequestLine(r domain.SlotRequest) string {
	return fmt.Sprintf("#%d %s, %s, коэф. до %s", r.ID, r.Warehouse, r.SupplyType, r.MaxCoef)
}

func draftLine(d domain.Draft) string {
	name := d.Name
	if name == "" {
		name = fmt.Sprintf("Черновик %d", d.ID)
	}
	line := name
	if d.GoodQty > 0 {
		line += fmt.Sprintf(" (%d тов.)", d.GoodQty)
	}
	return line
}

// pageTitle renders the 1-based "страница X из Y" suffix.
func pageTitle(page, pages int) string {
	return fmt.Sprintf("Страница %d из %d", page+1, pages)
}
