package domain

// Parameters holds every numeric value governing the signal decision engine and
// the parameter tuner. A Parameters value is always owned by a ConfigVersion;
// components receive it explicitly and never read an ambient copy.
type Parameters struct {
	Universe       UniverseParams       `json:"universe" yaml:"universe"`
	Features       FeatureParams        `json:"features" yaml:"features"`
	Regime         RegimeParams         `json:"regime" yaml:"regime"`
	Risk           RiskParams           `json:"risk" yaml:"risk"`
	Confidence     ConfidenceParams     `json:"confidence" yaml:"confidence"`
	MeanReversion  MeanReversionParams  `json:"mean_reversion" yaml:"mean_reversion"`
	Pressure       PressureParams       `json:"pressure" yaml:"pressure"`
	Ranking        RankingParams        `json:"ranking" yaml:"ranking"`
	Allocation     AllocationParams     `json:"allocation" yaml:"allocation"`
	Decision       DecisionParams       `json:"decision" yaml:"decision"`
	Sizing         SizingParams         `json:"sizing" yaml:"sizing"`
	CircuitBreaker CircuitBreakerParams `json:"circuit_breaker" yaml:"circuit_breaker"`
	Evaluation     EvaluationParams     `json:"evaluation" yaml:"evaluation"`
	Tuning         TuningParams         `json:"tuning" yaml:"tuning"`
	Validation     ValidationParams     `json:"validation" yaml:"validation"`
}

// UniverseParams defines the tradable instruments and the daily grant.
type UniverseParams struct {
	DailyCapital   float64  `json:"daily_capital" yaml:"daily_capital"`
	Assets         []string `json:"assets" yaml:"assets"`
	ReferenceAsset string   `json:"reference_asset" yaml:"reference_asset"` // market condition classification
	LookbackDays   int      `json:"lookback_days" yaml:"lookback_days"`     // calendar days of history loaded
	MinDataDays    int      `json:"min_data_days" yaml:"min_data_days"`     // sessions required per instrument
}

// FeatureParams defines feature windows.
type FeatureParams struct {
	ShortHorizon           int     `json:"short_horizon" yaml:"short_horizon"`
	MediumHorizon          int     `json:"medium_horizon" yaml:"medium_horizon"`
	LongHorizon            int     `json:"long_horizon" yaml:"long_horizon"`
	VolatilityWindow       int     `json:"volatility_window" yaml:"volatility_window"`
	RecentVolatilityWindow int     `json:"recent_volatility_window" yaml:"recent_volatility_window"`
	ShortMA                int     `json:"short_ma" yaml:"short_ma"`
	LongMA                 int     `json:"long_ma" yaml:"long_ma"`
	RSIPeriod              int     `json:"rsi_period" yaml:"rsi_period"`
	BollingerPeriod        int     `json:"bollinger_period" yaml:"bollinger_period"`
	BollingerStdMultiplier float64 `json:"bollinger_std_multiplier" yaml:"bollinger_std_multiplier"`
}

// RegimeParams defines the regime score, adaptive thresholds and transitions.
type RegimeParams struct {
	BullishThreshold float64 `json:"bullish_threshold" yaml:"bullish_threshold"`
	BearishThreshold float64 `json:"bearish_threshold" yaml:"bearish_threshold"`

	MomentumWeight float64 `json:"momentum_weight" yaml:"momentum_weight"`
	ShortMAWeight  float64 `json:"short_ma_weight" yaml:"short_ma_weight"`
	LongMAWeight   float64 `json:"long_ma_weight" yaml:"long_ma_weight"`

	VolatilityAdjustmentFactor float64 `json:"volatility_adjustment_factor" yaml:"volatility_adjustment_factor"`
	BaseVolatility             float64 `json:"base_volatility" yaml:"base_volatility"`
	AdaptiveClampMin           float64 `json:"adaptive_clamp_min" yaml:"adaptive_clamp_min"`
	AdaptiveClampMax           float64 `json:"adaptive_clamp_max" yaml:"adaptive_clamp_max"`

	TransitionThreshold   float64 `json:"transition_threshold" yaml:"transition_threshold"`
	MomentumLossThreshold float64 `json:"momentum_loss_threshold" yaml:"momentum_loss_threshold"`
	MomentumGainThreshold float64 `json:"momentum_gain_threshold" yaml:"momentum_gain_threshold"`
	StrongTrendThreshold  float64 `json:"strong_trend_threshold" yaml:"strong_trend_threshold"`
}

// RiskParams defines the risk score.
type RiskParams struct {
	HighThreshold    float64 `json:"high_threshold" yaml:"high_threshold"`
	MediumThreshold  float64 `json:"medium_threshold" yaml:"medium_threshold"`
	ExtremeThreshold float64 `json:"extreme_threshold" yaml:"extreme_threshold"`

	VolatilityNormalization float64 `json:"volatility_normalization" yaml:"volatility_normalization"`
	StabilityRatio          float64 `json:"stability_ratio" yaml:"stability_ratio"` // recent/trailing below this ⇒ discount
	StabilityDiscount       float64 `json:"stability_discount" yaml:"stability_discount"`

	CorrelationBase       float64 `json:"correlation_base" yaml:"correlation_base"`
	CorrelationMultiplier float64 `json:"correlation_multiplier" yaml:"correlation_multiplier"`

	VolatilityWeight  float64 `json:"volatility_weight" yaml:"volatility_weight"`
	CorrelationWeight float64 `json:"correlation_weight" yaml:"correlation_weight"`
	WeightTotal       float64 `json:"weight_total" yaml:"weight_total"`
}

// ConfidenceParams defines the confidence score and buckets.
type ConfidenceParams struct {
	RegimeDivisor         float64 `json:"regime_divisor" yaml:"regime_divisor"`
	RiskPenaltyMin        float64 `json:"risk_penalty_min" yaml:"risk_penalty_min"`
	RiskPenaltyMax        float64 `json:"risk_penalty_max" yaml:"risk_penalty_max"`
	RiskPenaltyMultiplier float64 `json:"risk_penalty_multiplier" yaml:"risk_penalty_multiplier"`
	ConsistencyThreshold  float64 `json:"consistency_threshold" yaml:"consistency_threshold"`
	ConsistencyBonus      float64 `json:"consistency_bonus" yaml:"consistency_bonus"`
	MeanReversionBase     float64 `json:"mean_reversion_base" yaml:"mean_reversion_base"`
	MRAlignmentBonus      float64 `json:"mean_reversion_alignment_bonus" yaml:"mean_reversion_alignment_bonus"`
	BucketHigh            float64 `json:"bucket_high" yaml:"bucket_high"`
	BucketMedium          float64 `json:"bucket_medium" yaml:"bucket_medium"`
}

// MeanReversionParams defines oversold/overbought classification.
type MeanReversionParams struct {
	RSIOversold     float64 `json:"rsi_oversold" yaml:"rsi_oversold"`
	RSIOverbought   float64 `json:"rsi_overbought" yaml:"rsi_overbought"`
	RSIMildOversold float64 `json:"rsi_mild_oversold" yaml:"rsi_mild_oversold"`
	BBOversold      float64 `json:"bb_oversold" yaml:"bb_oversold"`
	BBOverbought    float64 `json:"bb_overbought" yaml:"bb_overbought"`
	BBMildOversold  float64 `json:"bb_mild_oversold" yaml:"bb_mild_oversold"`

	OversoldBonus     float64 `json:"oversold_bonus" yaml:"oversold_bonus"`
	MildOversoldBonus float64 `json:"mild_oversold_bonus" yaml:"mild_oversold_bonus"`
	OverboughtPenalty float64 `json:"overbought_penalty" yaml:"overbought_penalty"`
	Allocation        float64 `json:"allocation" yaml:"allocation"`
	MaxRisk           float64 `json:"max_risk" yaml:"max_risk"`
}

// PressureParams defines downward pressure detection.
type PressureParams struct {
	PriceVsSMAThreshold     float64 `json:"price_vs_sma_threshold" yaml:"price_vs_sma_threshold"`
	HighVolatilityThreshold float64 `json:"high_volatility_threshold" yaml:"high_volatility_threshold"`
	NegativeReturnThreshold float64 `json:"negative_return_threshold" yaml:"negative_return_threshold"`
	ModerateAgreement       float64 `json:"moderate_agreement" yaml:"moderate_agreement"`
	SevereAgreement         float64 `json:"severe_agreement" yaml:"severe_agreement"`
	ModerateRiskFloor       float64 `json:"moderate_risk_floor" yaml:"moderate_risk_floor"`
	SevereRiskFloor         float64 `json:"severe_risk_floor" yaml:"severe_risk_floor"`
	ModerateMultiplier      float64 `json:"moderate_multiplier" yaml:"moderate_multiplier"`
	SevereMultiplier        float64 `json:"severe_multiplier" yaml:"severe_multiplier"`
}

// RankingParams defines the per-asset composite score.
type RankingParams struct {
	MomentumWeight         float64 `json:"momentum_weight" yaml:"momentum_weight"`
	PriceMomentumWeight    float64 `json:"price_momentum_weight" yaml:"price_momentum_weight"`
	TrendAlignedMultiplier float64 `json:"trend_aligned_multiplier" yaml:"trend_aligned_multiplier"`
	TrendMixedMultiplier   float64 `json:"trend_mixed_multiplier" yaml:"trend_mixed_multiplier"`
	MinVolatility          float64 `json:"min_volatility" yaml:"min_volatility"`
}

// AllocationParams defines diversification bands.
type AllocationParams struct {
	TopMin         float64 `json:"top_min" yaml:"top_min"`
	TopMax         float64 `json:"top_max" yaml:"top_max"`
	SecondMin      float64 `json:"second_min" yaml:"second_min"`
	SecondMax      float64 `json:"second_max" yaml:"second_max"`
	ThirdMin       float64 `json:"third_min" yaml:"third_min"`
	ThirdMax       float64 `json:"third_max" yaml:"third_max"`
	TwoAssetTop    float64 `json:"two_asset_top" yaml:"two_asset_top"`
	TwoAssetSecond float64 `json:"two_asset_second" yaml:"two_asset_second"`
}

// DecisionParams defines base allocations per branch of the decision tree.
type DecisionParams struct {
	AllocationLowRisk       float64 `json:"allocation_low_risk" yaml:"allocation_low_risk"`
	AllocationMediumRisk    float64 `json:"allocation_medium_risk" yaml:"allocation_medium_risk"`
	AllocationHighRisk      float64 `json:"allocation_high_risk" yaml:"allocation_high_risk"`
	AllocationNeutral       float64 `json:"allocation_neutral" yaml:"allocation_neutral"`
	SellPercentage          float64 `json:"sell_percentage" yaml:"sell_percentage"`
	ExtremeRiskSellFraction float64 `json:"extreme_risk_sell_fraction" yaml:"extreme_risk_sell_fraction"`
}

// CapitalTier reduces sizing once capital reaches Threshold.
type CapitalTier struct {
	Threshold float64 `json:"threshold" yaml:"threshold"`
	Factor    float64 `json:"factor" yaml:"factor"`
}

// SizingParams defines position sizing.
type SizingParams struct {
	ConfidenceScaling           float64       `json:"confidence_scaling" yaml:"confidence_scaling"`
	MinAllocationAmount         float64       `json:"min_allocation_amount" yaml:"min_allocation_amount"`
	MinAllocationConfidenceGate float64       `json:"min_allocation_confidence_gate" yaml:"min_allocation_confidence_gate"`
	KellyLookbackDays           int           `json:"kelly_lookback_days" yaml:"kelly_lookback_days"`
	KellyMinTrades              int           `json:"kelly_min_trades" yaml:"kelly_min_trades"`
	KellyDefault                float64       `json:"kelly_default" yaml:"kelly_default"`
	KellyFloor                  float64       `json:"kelly_floor" yaml:"kelly_floor"`
	KellyCap                    float64       `json:"kelly_cap" yaml:"kelly_cap"`
	CapitalBaseFactor           float64       `json:"capital_base_factor" yaml:"capital_base_factor"`
	CapitalTiers                []CapitalTier `json:"capital_tiers" yaml:"capital_tiers"`
	CapitalFloor                float64       `json:"capital_floor" yaml:"capital_floor"`
}

// CircuitBreakerParams defines the intra-month drawdown guard.
type CircuitBreakerParams struct {
	IntramonthDrawdownLimit float64 `json:"intramonth_drawdown_limit" yaml:"intramonth_drawdown_limit"`
	Reduction               float64 `json:"reduction" yaml:"reduction"`
}

// EvaluationParams defines retrospective trade scoring.
type EvaluationParams struct {
	ShortHorizon  int `json:"short_horizon" yaml:"short_horizon"`
	MediumHorizon int `json:"medium_horizon" yaml:"medium_horizon"`
	LongHorizon   int `json:"long_horizon" yaml:"long_horizon"`

	DrawdownWindowBefore int `json:"drawdown_window_before" yaml:"drawdown_window_before"`
	DrawdownWindowAfter  int `json:"drawdown_window_after" yaml:"drawdown_window_after"`
	ConditionWindow      int `json:"condition_window" yaml:"condition_window"`

	MomentumRSquared float64 `json:"momentum_r_squared" yaml:"momentum_r_squared"`
	MomentumSlope    float64 `json:"momentum_slope" yaml:"momentum_slope"` // per session, normalized by mean price
	ChoppyRSquared   float64 `json:"choppy_r_squared" yaml:"choppy_r_squared"`
	ChoppyVolatility float64 `json:"choppy_volatility" yaml:"choppy_volatility"`
	RegimeBullish    float64 `json:"regime_bullish" yaml:"regime_bullish"`
	RegimeBearish    float64 `json:"regime_bearish" yaml:"regime_bearish"`

	ProfitableBonus      float64 `json:"profitable_bonus" yaml:"profitable_bonus"`
	UnprofitablePenalty  float64 `json:"unprofitable_penalty" yaml:"unprofitable_penalty"`
	SharpeBonus          float64 `json:"sharpe_bonus" yaml:"sharpe_bonus"`
	LowDrawdownBonus     float64 `json:"low_drawdown_bonus" yaml:"low_drawdown_bonus"`
	HighDrawdownPenalty  float64 `json:"high_drawdown_penalty" yaml:"high_drawdown_penalty"`
	LowDrawdownLevel     float64 `json:"low_drawdown_level" yaml:"low_drawdown_level"`
	HighDrawdownLevel    float64 `json:"high_drawdown_level" yaml:"high_drawdown_level"`
	AllHorizonsBonus     float64 `json:"all_horizons_bonus" yaml:"all_horizons_bonus"`
	TwoHorizonsBonus     float64 `json:"two_horizons_bonus" yaml:"two_horizons_bonus"`
	MomentumAlignedBonus float64 `json:"momentum_aligned_bonus" yaml:"momentum_aligned_bonus"`
	ChoppyPenalty        float64 `json:"choppy_penalty" yaml:"choppy_penalty"`
	HoldMultiplier       float64 `json:"hold_multiplier" yaml:"hold_multiplier"`
	ConfidenceBonus      float64 `json:"confidence_bonus" yaml:"confidence_bonus"`
	MeanReversionBonus   float64 `json:"mean_reversion_bonus" yaml:"mean_reversion_bonus"`

	ShouldAvoidDrawdown float64 `json:"should_avoid_dd_threshold" yaml:"should_avoid_dd_threshold"`
	ShouldAvoidLoss     float64 `json:"should_avoid_loss_threshold" yaml:"should_avoid_loss_threshold"`
}

// Bound limits a tunable parameter. Both ends are required at load time;
// pointers make an absent bound detectable after decoding.
type Bound struct {
	Min  *float64 `json:"min" yaml:"min"`
	Max  *float64 `json:"max" yaml:"max"`
	Step float64  `json:"step" yaml:"step"`
}

// Clamp limits v to [Min, Max]. Missing ends do not clamp.
func (b Bound) Clamp(v float64) float64 {
	if b.Min != nil && v < *b.Min {
		v = *b.Min
	}
	if b.Max != nil && v > *b.Max {
		v = *b.Max
	}
	return v
}

// TuningParams defines the rule-based tuner.
type TuningParams struct {
	LookbackMonths int `json:"lookback_months" yaml:"lookback_months"`
	MinTrades      int `json:"min_trades" yaml:"min_trades"`
	MinGroupTrades int `json:"min_group_trades" yaml:"min_group_trades"`

	AggressiveWinRate       float64 `json:"aggressive_win_rate" yaml:"aggressive_win_rate"`             // percent
	AggressiveParticipation float64 `json:"aggressive_participation" yaml:"aggressive_participation"` // fraction
	AggressiveScore         float64 `json:"aggressive_score" yaml:"aggressive_score"`
	ConservativeWinRate     float64 `json:"conservative_win_rate" yaml:"conservative_win_rate"`
	ConservativeDrawdown    float64 `json:"conservative_drawdown" yaml:"conservative_drawdown"`
	ConservativeScore       float64 `json:"conservative_score" yaml:"conservative_score"`

	SharpeAggressiveMultiplier float64 `json:"sharpe_aggressive_multiplier" yaml:"sharpe_aggressive_multiplier"`
	LowDrawdownFraction        float64 `json:"low_drawdown_fraction" yaml:"low_drawdown_fraction"`
	ConfidenceSpread           float64 `json:"confidence_spread" yaml:"confidence_spread"` // win rate points
	StallParticipation         float64 `json:"stall_participation" yaml:"stall_participation"`

	EnableSymmetricLoosening bool             `json:"enable_symmetric_loosening" yaml:"enable_symmetric_loosening"`
	Bounds                   map[string]Bound `json:"bounds" yaml:"bounds"`
}

// ValidationParams defines the out-of-sample gate.
type ValidationParams struct {
	TrainFraction        float64 `json:"train_fraction" yaml:"train_fraction"`
	SharpeTolerance      float64 `json:"sharpe_tolerance" yaml:"sharpe_tolerance"`
	DrawdownTolerance    float64 `json:"drawdown_tolerance" yaml:"drawdown_tolerance"`
	SharpeWeight         float64 `json:"sharpe_weight" yaml:"sharpe_weight"`
	DrawdownWeight       float64 `json:"drawdown_weight" yaml:"drawdown_weight"`
	PassingScore         float64 `json:"passing_score" yaml:"passing_score"`
	RiskFreeRate         float64 `json:"risk_free_rate" yaml:"risk_free_rate"`
	TradingDaysPerYear   int     `json:"trading_days_per_year" yaml:"trading_days_per_year"`
	MaxDrawdownTolerance float64 `json:"max_drawdown_tolerance" yaml:"max_drawdown_tolerance"` // percent
	MinSharpeTarget      float64 `json:"min_sharpe_target" yaml:"min_sharpe_target"`
}

// DefaultParameters returns the baseline parameter set used to seed the
// first configuration version.
func DefaultParameters() Parameters {
	return Parameters{
		Universe: UniverseParams{
			DailyCapital:   1000,
			Assets:         []string{"SPY", "QQQ", "DIA"},
			ReferenceAsset: "SPY",
			LookbackDays:   252,
			MinDataDays:    60,
		},
		Features: FeatureParams{
			ShortHorizon:           5,
			MediumHorizon:          20,
			LongHorizon:            60,
			VolatilityWindow:       20,
			RecentVolatilityWindow: 5,
			ShortMA:                20,
			LongMA:                 50,
			RSIPeriod:              14,
			BollingerPeriod:        20,
			BollingerStdMultiplier: 2.0,
		},
		Regime: RegimeParams{
			BullishThreshold:           0.3,
			BearishThreshold:           -0.3,
			MomentumWeight:             0.5,
			ShortMAWeight:              0.3,
			LongMAWeight:               0.2,
			VolatilityAdjustmentFactor: 0.4,
			BaseVolatility:             0.01,
			AdaptiveClampMin:           0.5,
			AdaptiveClampMax:           2.0,
			TransitionThreshold:        0.1,
			MomentumLossThreshold:      -0.15,
			MomentumGainThreshold:      0.15,
			StrongTrendThreshold:       0.4,
		},
		Risk: RiskParams{
			HighThreshold:           70,
			MediumThreshold:         40,
			ExtremeThreshold:        85,
			VolatilityNormalization: 0.02,
			StabilityRatio:          0.8,
			StabilityDiscount:       0.3,
			CorrelationBase:         30,
			CorrelationMultiplier:   100,
			VolatilityWeight:        0.7,
			CorrelationWeight:       0.3,
			WeightTotal:             1.0,
		},
		Confidence: ConfidenceParams{
			RegimeDivisor:         0.5,
			RiskPenaltyMin:        40,
			RiskPenaltyMax:        60,
			RiskPenaltyMultiplier: 0.3,
			ConsistencyThreshold:  0.01,
			ConsistencyBonus:      0.2,
			MeanReversionBase:     0.6,
			MRAlignmentBonus:      0.1,
			BucketHigh:            0.7,
			BucketMedium:          0.5,
		},
		MeanReversion: MeanReversionParams{
			RSIOversold:       30,
			RSIOverbought:     70,
			RSIMildOversold:   40,
			BBOversold:        -0.5,
			BBOverbought:      0.5,
			BBMildOversold:    0.0,
			OversoldBonus:     0.3,
			MildOversoldBonus: 0.1,
			OverboughtPenalty: -0.2,
			Allocation:        0.4,
			MaxRisk:           60,
		},
		Pressure: PressureParams{
			PriceVsSMAThreshold:     -0.02,
			HighVolatilityThreshold: 0.015,
			NegativeReturnThreshold: -0.03,
			ModerateAgreement:       0.66,
			SevereAgreement:         1.0,
			ModerateRiskFloor:       55,
			SevereRiskFloor:         75,
			ModerateMultiplier:      0.6,
			SevereMultiplier:        0.3,
		},
		Ranking: RankingParams{
			MomentumWeight:         0.6,
			PriceMomentumWeight:    0.4,
			TrendAlignedMultiplier: 1.5,
			TrendMixedMultiplier:   1.0,
			MinVolatility:          0.001,
		},
		Allocation: AllocationParams{
			TopMin:         0.40,
			TopMax:         0.50,
			SecondMin:      0.30,
			SecondMax:      0.35,
			ThirdMin:       0.15,
			ThirdMax:       0.25,
			TwoAssetTop:    0.65,
			TwoAssetSecond: 0.35,
		},
		Decision: DecisionParams{
			AllocationLowRisk:       0.8,
			AllocationMediumRisk:    0.5,
			AllocationHighRisk:      0.3,
			AllocationNeutral:       0.2,
			SellPercentage:          0.7,
			ExtremeRiskSellFraction: 0.3,
		},
		Sizing: SizingParams{
			ConfidenceScaling:           0.5,
			MinAllocationAmount:         50,
			MinAllocationConfidenceGate: 0.3,
			KellyLookbackDays:           60,
			KellyMinTrades:              10,
			KellyDefault:                0.5,
			KellyFloor:                  0.1,
			KellyCap:                    0.8,
			CapitalBaseFactor:           1.0,
			CapitalTiers: []CapitalTier{
				{Threshold: 10000, Factor: 0.75},
				{Threshold: 50000, Factor: 0.5},
				{Threshold: 200000, Factor: 0.35},
			},
			CapitalFloor: 0.35,
		},
		CircuitBreaker: CircuitBreakerParams{
			IntramonthDrawdownLimit: 0.10,
			Reduction:               0.5,
		},
		Evaluation: EvaluationParams{
			ShortHorizon:         10,
			MediumHorizon:        20,
			LongHorizon:          30,
			DrawdownWindowBefore: 5,
			DrawdownWindowAfter:  20,
			ConditionWindow:      20,
			MomentumRSquared:     0.6,
			MomentumSlope:        0.001,
			ChoppyRSquared:       0.3,
			ChoppyVolatility:     0.02,
			RegimeBullish:        0.3,
			RegimeBearish:        -0.3,
			ProfitableBonus:      0.3,
			UnprofitablePenalty:  -0.3,
			SharpeBonus:          0.1,
			LowDrawdownBonus:     0.1,
			HighDrawdownPenalty:  -0.2,
			LowDrawdownLevel:     10,
			HighDrawdownLevel:    30,
			AllHorizonsBonus:     0.2,
			TwoHorizonsBonus:     0.1,
			MomentumAlignedBonus: 0.15,
			ChoppyPenalty:        -0.15,
			HoldMultiplier:       0.5,
			ConfidenceBonus:      0.1,
			MeanReversionBonus:   0.1,
			ShouldAvoidDrawdown:  50,
			ShouldAvoidLoss:      -20,
		},
		Tuning: TuningParams{
			LookbackMonths:             3,
			MinTrades:                  30,
			MinGroupTrades:             5,
			AggressiveWinRate:          60,
			AggressiveParticipation:    0.5,
			AggressiveScore:            0.2,
			ConservativeWinRate:        40,
			ConservativeDrawdown:       30,
			ConservativeScore:          -0.1,
			SharpeAggressiveMultiplier: 1.5,
			LowDrawdownFraction:        0.5,
			ConfidenceSpread:           10,
			StallParticipation:         0.2,
			EnableSymmetricLoosening:   false,
			Bounds:                     DefaultBounds(),
		},
		Validation: ValidationParams{
			TrainFraction:        2.0 / 3.0,
			SharpeTolerance:      0.8,
			DrawdownTolerance:    1.2,
			SharpeWeight:         0.5,
			DrawdownWeight:       0.5,
			PassingScore:         1.0,
			RiskFreeRate:         0.05,
			TradingDaysPerYear:   252,
			MaxDrawdownTolerance: 15,
			MinSharpeTarget:      1.0,
		},
	}
}

// Clone returns a deep copy. Slices and the bounds map are not shared.
func (p Parameters) Clone() Parameters {
	out := p
	out.Universe.Assets = append([]string(nil), p.Universe.Assets...)
	out.Sizing.CapitalTiers = append([]CapitalTier(nil), p.Sizing.CapitalTiers...)
	if p.Tuning.Bounds != nil {
		out.Tuning.Bounds = make(map[string]Bound, len(p.Tuning.Bounds))
		for k, b := range p.Tuning.Bounds {
			nb := Bound{Step: b.Step}
			if b.Min != nil {
				v := *b.Min
				nb.Min = &v
			}
			if b.Max != nil {
				v := *b.Max
				nb.Max = &v
			}
			out.Tuning.Bounds[k] = nb
		}
	}
	return out
}
