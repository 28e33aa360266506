package domain

// FactorSet holds every named anomaly factor for one scored unit.
// The set is closed: adding a factor means adding a field here, a cap in
// the factors package, and a weight or sub-score that consumes it.
// Invariant: no field is ever NaN, Inf, or negative.
type FactorSet struct {
	VolumeZScore         float64
	OIMomentum           float64
	PriceMomentum        float64
	VolatilitySkew       float64
	TimeDecay            float64
	GreeksAlignment      float64
	StrikeConcentration  float64
	MarketCapFactor      float64
	LiquidityFactor      float64
	PatternRecognition   float64
	OTMCallConcentration float64
	DirectionalBias      float64
	TimePressure         float64
}
