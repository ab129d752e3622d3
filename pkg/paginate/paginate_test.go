package paginate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vkarpenko/slotbot/pkg/paginate"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name              string
		total, page, size int
		wantNumber        int
		wantCount         int
		wantStart         int
		wantEnd           int
	}{
		{"empty list still has one page", 0, 0, 5, 0, 1, 0, 0},
		{"single partial page", 3, 0, 5, 0, 1, 0, 3},
		{"exact multiple", 10, 1, 5, 1, 2, 5, 10},
		{"last page partial", 11, 2, 5, 2, 3, 10, 11},
		{"page clamped high", 11, 99, 5, 2, 3, 10, 11},
		{"page clamped negative", 11, -4, 5, 0, 3, 0, 5},
		{"empty list clamps any page", 0, 7, 5, 0, 1, 0, 0},
		{"size one", 4, 2, 1, 2, 4, 2, 3},
		{"zero size treated as one", 4, 0, 0, 0, 4, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := paginate.New(tt.total, tt.page, tt.size)
			assert.Equal(t, tt.wantNumber, p.Number, "Number")
			assert.Equal(t, tt.wantCount, p.Count, "Count")
			assert.Equal(t, tt.wantStart, p.Start, "Start")
			assert.Equal(t, tt.wantEnd, p.End, "End")
		})
	}
}

func TestPage_Navigation(t *testing.T) {
	p := paginate.New(12, 0, 5)
	assert.False(t, p.HasPrev())
	assert.True(t, p.HasNext())

	p = paginate.New(12, 1, 5)
	assert.True(t, p.HasPrev())
	assert.True(t, p.HasNext())

	p = paginate.New(12, 2, 5)
	assert.True(t, p.HasPrev())
	assert.False(t, p.HasNext())

	// A single page has no navigation in either direction.
	p = paginate.New(2, 0, 5)
	assert.False(t, p.HasPrev())
	assert.False(t, p.HasNext())
}

// Every item must land on exactly one page, in order.
func TestNew_WindowsCoverAllItems(t *testing.T) {
	for total := 0; total <= 23; total++ {
		for size := 1; size <= 7; size++ {
			covered := 0
			count := paginate.New(total, 0, size).Count
			for page := 0; page < count; page++ {
				p := paginate.New(total, page, size)
				assert.Equal(t, covered, p.Start)
				assert.LessOrEqual(t, p.End-p.Start, size)
				covered = p.End
			}
			assert.Equal(t, total, covered, "total=%d size=%d", total, size)
		}
	}
}
