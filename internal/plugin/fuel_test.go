package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFuelMeterNotExhaustedUnderBudget(t *testing.T) {
	m := newFuelMeter(10)
	for i := 0; i < 5; i++ {
		m.spent++
	}
	assert.False(t, m.Exhausted())
	assert.EqualValues(t, 5, m.Spent())
}

func TestFuelMeterExhaustedFlagReportsTrueOnceSet(t *testing.T) {
	m := newFuelMeter(3)
	m.spent = 4
	m.exhausted = true
	assert.True(t, m.Exhausted())
	assert.EqualValues(t, 4, m.Spent())
}

func TestFuelMeterFactoryProducesAListenerPerDefinition(t *testing.T) {
	m := newFuelMeter(100)
	factory := m.factory()
	l1 := factory.NewListener(nil)
	l2 := factory.NewListener(nil)
	assert.Same(t, m, l1)
	assert.Same(t, m, l2)
}
