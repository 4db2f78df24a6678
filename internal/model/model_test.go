package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrgType_Escalate(t *testing.T) {
	tests := []struct {
		name string
		have OrgType
		seen OrgType
		want OrgType
	}{
		{"first sighting as buyer", "", OrgTypeBuyer, OrgTypeBuyer},
		{"buyer seen as buyer", OrgTypeBuyer, OrgTypeBuyer, OrgTypeBuyer},
		{"buyer seen as supplier", OrgTypeBuyer, OrgTypeSupplier, OrgTypeMixed},
		{"supplier seen as buyer", OrgTypeSupplier, OrgTypeBuyer, OrgTypeMixed},
		{"mixed never downgrades on buyer sighting", OrgTypeMixed, OrgTypeBuyer, OrgTypeMixed},
		{"mixed never downgrades on supplier sighting", OrgTypeMixed, OrgTypeSupplier, OrgTypeMixed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.have.Escalate(tt.seen))
		})
	}
}

func TestLevelForScore(t *testing.T) {
	assert.Equal(t, RiskLow, LevelForScore(0))
	assert.Equal(t, RiskLow, LevelForScore(39.9))
	assert.Equal(t, RiskMedium, LevelForScore(40))
	assert.Equal(t, RiskHigh, LevelForScore(60))
	assert.Equal(t, RiskCritical, LevelForScore(80))
	assert.Equal(t, RiskCritical, LevelForScore(100))
}

func TestRiskLevel_Rank(t *testing.T) {
	low, ok := RiskLow.Rank()
	assert.True(t, ok)
	med, _ := RiskMedium.Rank()
	high, _ := RiskHigh.Rank()
	crit, _ := RiskCritical.Rank()
	assert.True(t, low < med && med < high && high < crit)

	// Unknown is off the scale entirely.
	_, ok = RiskUnknown.Rank()
	assert.False(t, ok)
}
