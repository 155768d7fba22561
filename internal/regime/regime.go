// Package regime classifies market conditions from the candle window and
// gates confluence decisions against minimum trend and volatility floors.
package regime

import (
	"Conflux/internal/domain/models"
	"Conflux/internal/indicator"
)

// Config holds the regime floors. A zero floor disables that filter.
type Config struct {
	ADXPeriod      int     `yaml:"adx_period" default:"14"`
	ATRPeriod      int     `yaml:"atr_period" default:"14"`
	BollPeriod     int     `yaml:"boll_period" default:"20"`
	BollMult       float64 `yaml:"boll_mult" default:"2.0"`
	MinTrend       float64 `yaml:"min_trend" validate:"gte=0"`
	MinVolatility  float64 `yaml:"min_volatility" validate:"gte=0"`
	MinBandWidth   float64 `yaml:"min_band_width" validate:"gte=0"`
	StrongTrendADX float64 `yaml:"strong_trend_adx" default:"25"`
}

// Analyzer computes a RegimeContext for each window.
type Analyzer struct {
	cfg Config
}

func NewAnalyzer(cfg Config) *Analyzer {
	if cfg.ADXPeriod <= 0 {
		cfg.ADXPeriod = 14
	}
	if cfg.ATRPeriod <= 0 {
		cfg.ATRPeriod = 14
	}
	if cfg.BollPeriod <= 0 {
		cfg.BollPeriod = 20
	}
	if cfg.BollMult <= 0 {
		cfg.BollMult = 2.0
	}
	if cfg.StrongTrendADX <= 0 {
		cfg.StrongTrendADX = 25
	}
	return &Analyzer{cfg: cfg}
}

// Analyze derives trend strength, volatility and band width from the window.
// Indicators that lack data report zero and leave the classification UNKNOWN
// rather than failing the cycle.
func (a *Analyzer) Analyze(w *models.Window) models.RegimeContext {
	ctx := models.RegimeContext{Classification: models.Unknown}

	highs, lows, closes := w.Highs(), w.Lows(), w.Closes()

	if adx, plusDI, minusDI, ok := indicator.ADX(highs, lows, closes, a.cfg.ADXPeriod); ok {
		ctx.TrendStrength = adx
		ctx.PlusDI = plusDI
		ctx.MinusDI = minusDI
	}
	if atr, ok := indicator.ATR(highs, lows, closes, a.cfg.ATRPeriod); ok {
		ctx.Volatility = atr
	}
	if bw, ok := indicator.BandWidth(closes, a.cfg.BollPeriod, a.cfg.BollMult); ok {
		ctx.BandWidth = bw
	}

	ctx.Classification = a.classify(ctx)
	return ctx
}

func (a *Analyzer) classify(ctx models.RegimeContext) models.Classification {
	if ctx.TrendStrength == 0 {
		return models.Unknown
	}
	if ctx.TrendStrength < a.cfg.StrongTrendADX {
		return models.Correction
	}
	if ctx.PlusDI >= ctx.MinusDI {
		return models.Bullish
	}
	return models.Bearish
}

// Pass reports whether the context clears every configured floor, and the
// reasons it fails when it does not.
func (a *Analyzer) Pass(ctx models.RegimeContext) (bool, []string) {
	var reasons []string
	if a.cfg.MinTrend > 0 && ctx.TrendStrength < a.cfg.MinTrend {
		reasons = append(reasons, "trend strength below floor")
	}
	if a.cfg.MinVolatility > 0 && ctx.Volatility < a.cfg.MinVolatility {
		reasons = append(reasons, "volatility below floor")
	}
	if a.cfg.MinBandWidth > 0 && ctx.BandWidth < a.cfg.MinBandWidth {
		reasons = append(reasons, "band width below floor")
	}
	return len(reasons) == 0, reasons
}
