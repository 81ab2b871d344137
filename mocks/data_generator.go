package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/shopspring/decimal"
)

// DataGenerator generates futures bars on the contract tick grid for tests and
// backtest benchmarks.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how bars are generated.
type GeneratorConfig struct {
	// Instrument is the contract symbol (e.g., "ES", "MES")
	Instrument string
	// StartTime is the time of the first bar
	StartTime time.Time
	// Interval is the duration between each bar
	Interval time.Duration
	// Count is the number of bars to generate
	Count int
	// InitialPrice is the starting price
	InitialPrice float64
	// TickSize is the price grid every OHLC value is rounded to
	TickSize float64
	// Volatility controls price movement per bar (0.001 = 0.1%)
	Volatility float64
	// Trend is the drift over the whole series (-0.01 to 0.01 for bearish to bullish)
	Trend float64
	// VolumeBase is the average volume per bar
	VolumeBase float64
	// VolumeVariance is the variance in volume (0.0 to 1.0)
	VolumeVariance float64
}

// DefaultConfig returns one regular ES session of one minute bars starting at
// the New York open on a Monday.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Instrument:     "ES",
		StartTime:      time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC),
		Interval:       time.Minute,
		Count:          390,
		InitialPrice:   4500.0,
		TickSize:       0.25,
		Volatility:     0.0005,
		Trend:          0.0,
		VolumeBase:     2000,
		VolumeVariance: 0.3,
	}
}

// Generate creates bars following a geometric Brownian motion, snapped to the tick grid.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.MarketData {
	data := make([]types.MarketData, config.Count)
	currentPrice := config.InitialPrice
	currentTime := config.StartTime

	for i := 0; i < config.Count; i++ {
		open := currentPrice

		// Box-Muller transform for a normal draw
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		priceChange := config.Volatility * z
		drift := config.Trend / float64(config.Count)

		close := open * (1 + priceChange + drift)
		if close <= 0 {
			close = open * 0.99
		}

		highExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)
		lowExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)

		high := math.Max(open, close) + highExtension
		low := math.Min(open, close) - lowExtension
		if low <= 0 {
			low = math.Min(open, close) * 0.99
		}

		volumeVariation := 1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance
		volume := config.VolumeBase * volumeVariation
		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		bar := types.MarketData{
			Instrument: config.Instrument,
			Time:       currentTime,
			Open:       roundToTick(open, config.TickSize),
			High:       roundToTick(high, config.TickSize),
			Low:        roundToTick(low, config.TickSize),
			Close:      roundToTick(close, config.TickSize),
			Volume:     math.Round(volume),
		}

		// rounding can move open or close outside the range
		bar.High = decimal.Max(bar.High, bar.Open, bar.Close)
		bar.Low = decimal.Min(bar.Low, bar.Open, bar.Close)
		data[i] = bar

		currentPrice = close
		currentTime = currentTime.Add(config.Interval)
	}

	return data
}

// GenerateMultiInstrument generates bars for several contracts, each with a
// slightly different starting price and volatility.
func (g *DataGenerator) GenerateMultiInstrument(instruments []string, baseConfig GeneratorConfig) []types.MarketData {
	var allData []types.MarketData

	for _, instrument := range instruments {
		config := baseConfig
		config.Instrument = instrument
		config.InitialPrice = baseConfig.InitialPrice * (0.98 + g.rng.Float64()*0.04)
		config.Volatility = baseConfig.Volatility * (0.8 + g.rng.Float64()*0.4)

		allData = append(allData, g.Generate(config)...)
	}

	return allData
}

// GenerateSession is a convenience function for one reproducible ES session.
func GenerateSession(instrument string) []types.MarketData {
	gen := NewDataGenerator(42)
	config := DefaultConfig()
	config.Instrument = instrument

	return gen.Generate(config)
}

// Bar builds a single bar from string prices.
func Bar(instrument string, t time.Time, open, high, low, close string) types.MarketData {
	return types.MarketData{
		Instrument: instrument,
		Time:       t,
		Open:       decimal.RequireFromString(open),
		High:       decimal.RequireFromString(high),
		Low:        decimal.RequireFromString(low),
		Close:      decimal.RequireFromString(close),
		Volume:     1,
	}
}

func roundToTick(val, tick float64) decimal.Decimal {
	if tick <= 0 {
		return decimal.NewFromFloat(val).Round(2)
	}

	t := decimal.NewFromFloat(tick)

	return decimal.NewFromFloat(val).Div(t).Round(0).Mul(t)
}
