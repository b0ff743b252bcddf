package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/shipflow/internal/domain"
)

func TestWriteAllocations(t *testing.T) {
	results := []domain.AllocationResult{
		{
			StoreID:          "7",
			SKUID:            "A1",
			WarehouseID:      "1",
			OnHandStock:      2,
			InTransit:        1,
			MinimumThreshold: 5,
			WeeklySalesRate:  1.5,
			Cover:            2.0,
			TargetStock:      10.5,
			NeedQuantity:     7.5,
			NeedKind:         domain.NeedRPT,
			ShippedQuantity:  7.5,
			UnmetQuantity:    0,
			SKUSegment:       "4-8",
			StoreSegment:     "0-4",
		},
		{
			StoreID:         "8",
			SKUID:           "B2",
			WarehouseID:     "2",
			NeedQuantity:    4,
			NeedKind:        domain.NeedMIN,
			ShippedQuantity: 1,
			UnmetQuantity:   3,
		},
		{
			StoreID:       "9",
			SKUID:         "C3",
			WarehouseID:   "2",
			NeedQuantity:  2,
			NeedKind:      domain.NeedRPT,
			UnmetQuantity: 2,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAllocations(&buf, results))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, allocationHeader, records[0])

	assert.Equal(t, []string{
		"7", "A1", "1", "2", "1", "5", "1.50", "2.0", "10.50", "7.50",
		"RPT", "7.50", "0", "FULL", "4-8", "0-4",
	}, records[1])

	assert.Equal(t, "PARTIAL", records[2][13])
	assert.Equal(t, "NONE", records[3][13])
}

func TestWriteAllocationsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAllocations(&buf, nil))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1) // header only
	assert.Equal(t, allocationHeader, records[0])
}

func TestFormatQty(t *testing.T) {
	assert.Equal(t, "5", formatQty(5))
	assert.Equal(t, "0", formatQty(0))
	assert.Equal(t, "2.50", formatQty(2.5))
}
