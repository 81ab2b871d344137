package indicator

import (
	"testing"

	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/stretchr/testify/suite"
)

// mockIndicator is a simple mock indicator for testing the registry
type mockIndicator struct {
	name    Type
	updates int
	resets  int
}

func newMockIndicator(name Type) *mockIndicator {
	return &mockIndicator{name: name}
}

func (m *mockIndicator) Name() Type {
	return m.name
}

func (m *mockIndicator) Update(types.MarketData) {
	m.updates++
}

func (m *mockIndicator) Ready() bool {
	return m.updates > 0
}

func (m *mockIndicator) Reset() {
	m.resets++
	m.updates = 0
}

type RegistryTestSuite struct {
	suite.Suite
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func (suite *RegistryTestSuite) TestRegisterIndicator() {
	registry := NewIndicatorRegistry()

	indicator := newMockIndicator(TypeVWAP)
	err := registry.RegisterIndicator(indicator)
	suite.NoError(err)

	retrieved, err := registry.GetIndicator(TypeVWAP)
	suite.NoError(err)
	suite.Equal(indicator, retrieved)
}

func (suite *RegistryTestSuite) TestRegisterIndicatorDuplicate() {
	registry := NewIndicatorRegistry()

	suite.NoError(registry.RegisterIndicator(newMockIndicator(TypeVWAP)))

	err := registry.RegisterIndicator(newMockIndicator(TypeVWAP))
	suite.Error(err)
	suite.Contains(err.Error(), "already registered")
}

func (suite *RegistryTestSuite) TestGetIndicatorNotFound() {
	registry := NewIndicatorRegistry()

	_, err := registry.GetIndicator(TypeOpeningRange)
	suite.Error(err)
	suite.Contains(err.Error(), "not found")
}

func (suite *RegistryTestSuite) TestListKeepsRegistrationOrder() {
	registry := NewIndicatorRegistry()

	suite.NoError(registry.RegisterIndicator(newMockIndicator(TypeOpeningRange)))
	suite.NoError(registry.RegisterIndicator(newMockIndicator(TypeVWAP)))

	suite.Equal([]Type{TypeOpeningRange, TypeVWAP}, registry.ListIndicators())
}

func (suite *RegistryTestSuite) TestRemoveIndicator() {
	registry := NewIndicatorRegistry()

	suite.NoError(registry.RegisterIndicator(newMockIndicator(TypeVWAP)))
	suite.NoError(registry.RemoveIndicator(TypeVWAP))
	suite.Empty(registry.ListIndicators())

	err := registry.RemoveIndicator(TypeVWAP)
	suite.Error(err)
}

func (suite *RegistryTestSuite) TestUpdateAndResetAll() {
	registry := NewIndicatorRegistry()
	first := newMockIndicator(TypeVWAP)
	second := newMockIndicator(TypeOpeningRange)

	suite.NoError(registry.RegisterIndicator(first))
	suite.NoError(registry.RegisterIndicator(second))

	registry.UpdateAll(types.MarketData{})
	registry.UpdateAll(types.MarketData{})
	suite.Equal(2, first.updates)
	suite.Equal(2, second.updates)

	registry.ResetAll()
	suite.Equal(1, first.resets)
	suite.Equal(1, second.resets)
	suite.False(first.Ready())
}
