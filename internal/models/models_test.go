package models

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMonth(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Month
	}{
		{"iso month", "2024-01", NewMonth(2024, time.January)},
		{"iso date", "2024-03-15", NewMonth(2024, time.March)},
		{"short label", "Feb 2024", NewMonth(2024, time.February)},
		{"long label", "December 2023", NewMonth(2023, time.December)},
		{"slash", "07/2024", NewMonth(2024, time.July)},
		{"whitespace", "  2024-05 ", NewMonth(2024, time.May)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMonth(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("invalid", func(t *testing.T) {
		_, err := ParseMonth("last month")
		assert.Error(t, err)
	})
}

func TestMonth_Arithmetic(t *testing.T) {
	jan := NewMonth(2024, time.January)

	assert.Equal(t, NewMonth(2023, time.December), jan.AddMonths(-1))
	assert.True(t, jan.Before(jan.AddMonths(1)))
	assert.Equal(t, "2024-01", jan.String())
	assert.Equal(t, "Jan 2024", jan.Label())
	assert.Equal(t, jan, MonthOf(time.Date(2024, time.January, 31, 23, 0, 0, 0, time.UTC)))
	assert.True(t, MonthOf(time.Time{}).IsZero())
}

func TestMonth_JSON(t *testing.T) {
	type wrapper struct {
		M Month `json:"m"`
	}

	data, err := json.Marshal(wrapper{M: NewMonth(2024, time.February)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"m":"2024-02"}`, string(data))

	data, err = json.Marshal(wrapper{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"m":null}`, string(data))

	var w wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"m":"Mar 2024"}`), &w))
	assert.Equal(t, NewMonth(2024, time.March), w.M)

	assert.Error(t, json.Unmarshal([]byte(`{"m":"soon"}`), &w))
}

func TestRunway_MarshalJSON(t *testing.T) {
	t.Run("finite runway", func(t *testing.T) {
		r := Runway{
			Lookback:           2,
			MonthlyNet:         decimal.NewFromInt(-55000),
			AdjustedMonthlyNet: decimal.NewFromInt(-55000),
			EndingCash:         decimal.NewFromInt(390000),
			Months:             390000.0 / 55000.0,
		}
		data, err := json.Marshal(r)
		require.NoError(t, err)

		var out map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &out))
		assert.Equal(t, false, out["indefinite"])
		assert.InDelta(t, 7.09, out["runway_months"].(float64), 0.01)
	})

	t.Run("indefinite runway", func(t *testing.T) {
		r := Runway{Lookback: 3, Months: math.Inf(1)}
		assert.True(t, r.Indefinite())

		data, err := json.Marshal(r)
		require.NoError(t, err)

		var out map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &out))
		assert.Equal(t, true, out["indefinite"])
		assert.Nil(t, out["runway_months"])
	})
}

func TestPnLFigures_Sub(t *testing.T) {
	a := PnLFigures{Revenue: decimal.NewFromInt(100), NetProfit: decimal.NewFromInt(10)}
	b := PnLFigures{Revenue: decimal.NewFromInt(90), NetProfit: decimal.NewFromInt(15)}

	v := a.Sub(b)
	assert.True(t, v.Revenue.Equal(decimal.NewFromInt(10)))
	assert.True(t, v.NetProfit.Equal(decimal.NewFromInt(-5)))
	assert.True(t, v.COGS.IsZero())
}

func TestCashflowStatement_EndingCash(t *testing.T) {
	assert.True(t, CashflowStatement{}.EndingCash().IsZero())

	s := CashflowStatement{Periods: []CashflowPeriod{
		{EndingCash: decimal.NewFromInt(450000)},
		{EndingCash: decimal.NewFromInt(390000)},
	}}
	assert.True(t, s.EndingCash().Equal(decimal.NewFromInt(390000)))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "$1,234.50", FormatAmount(decimal.RequireFromString("1234.5"), "USD"))
	assert.Equal(t, "$1,234.57", FormatAmount(decimal.RequireFromString("1234.567"), "USD"))

	out := FormatAmounts(map[string]decimal.Decimal{"noi": decimal.NewFromInt(2500)}, "USD")
	assert.Equal(t, "$2,500.00", out["noi"])

	t.Run("unknown currency keeps the amount", func(t *testing.T) {
		assert.Equal(t, "1234.50 ZZZ", FormatAmount(decimal.RequireFromString("1234.5"), "ZZZ"))
		assert.Equal(t, "-80.00", FormatAmount(decimal.NewFromInt(-80), ""))
	})
}
