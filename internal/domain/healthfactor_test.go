package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestComputeHealthFactor(t *testing.T) {
	collateral := decimal.NewFromInt(10000)
	threshold := decimal.RequireFromString("0.9")

	hf := ComputeHealthFactor(collateral, threshold, decimal.NewFromInt(5000))
	require.False(t, hf.IsInfinite())
	require.True(t, hf.Value().Equal(decimal.RequireFromString("1.8")), "expected 1.8, got %s", hf)
}

func TestComputeHealthFactor_NoDebt(t *testing.T) {
	hf := ComputeHealthFactor(decimal.NewFromInt(10000), decimal.RequireFromString("0.8"), decimal.Zero)
	require.True(t, hf.IsInfinite(), "debt-free account must have infinite health factor")
	require.Equal(t, "inf", hf.String())
	require.Equal(t, RiskHealthy, Classify(hf))
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name  string
		value string
		want  RiskClass
	}{
		{"below one is liquidatable", "0.99", RiskLiquidatable},
		{"zero is liquidatable", "0", RiskLiquidatable},
		{"exactly one is critical", "1", RiskCritical},
		{"just under warning bound", "1.1999", RiskCritical},
		{"warning bound inclusive", "1.2", RiskWarning},
		{"moderate bound inclusive", "1.5", RiskModerate},
		{"just under safe bound", "1.9999", RiskModerate},
		{"safe bound inclusive", "2", RiskSafe},
		{"ten is still safe", "10", RiskSafe},
		{"above ten is healthy", "10.0001", RiskHealthy},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hf := NewHealthFactor(decimal.RequireFromString(tc.value))
			require.Equal(t, tc.want, Classify(hf), "hf=%s", tc.value)
		})
	}
}

func TestClassify_Monotonic(t *testing.T) {
	// a higher health factor must never land in a more dangerous class
	values := []string{"0", "0.5", "1", "1.2", "1.35", "1.5", "1.8", "2", "5", "10", "11", "100"}
	prev := RiskLiquidatable
	for _, v := range values {
		class := Classify(NewHealthFactor(decimal.RequireFromString(v)))
		require.GreaterOrEqual(t, class, prev, "class regressed at hf=%s", v)
		prev = class
	}
}
