package fixtures

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"

	"settlement-reconciliation-service/internal/models"
)

// ScenarioConfig controls how many PartnerPins of each outcome a generated
// scenario contains.
type ScenarioConfig struct {
	Seed           int64
	Reconciled     int
	Mismatched     int
	SettlementOnly int
	StatementOnly  int
	// CancelledDuplicates adds pins appearing twice in the settlement file,
	// once as a cancellation, which stay eligible.
	CancelledDuplicates int
	// DollarReceived adds statement rows that are always excluded.
	DollarReceived int
}

// DefaultScenarioConfig returns a small mixed scenario.
func DefaultScenarioConfig() ScenarioConfig {
	return ScenarioConfig{
		Seed:                42,
		Reconciled:          20,
		Mismatched:          5,
		SettlementOnly:      3,
		StatementOnly:       3,
		CancelledDuplicates: 2,
		DollarReceived:      2,
	}
}

// Validate checks if the scenario configuration is valid
func (c ScenarioConfig) Validate() error {
	counts := []int{c.Reconciled, c.Mismatched, c.SettlementOnly, c.StatementOnly, c.CancelledDuplicates, c.DollarReceived}
	total := 0
	for _, n := range counts {
		if n < 0 {
			return fmt.Errorf("scenario counts cannot be negative")
		}
		total += n
	}
	if total > 99999999 {
		return fmt.Errorf("scenario too large: %d pins", total)
	}
	return nil
}

// Scenario is a generated pair of exports plus the outcome expected per pin.
type Scenario struct {
	Statement  []StatementEntry
	Settlement []SettlementEntry
	Expected   map[string]models.FinalReconcileStatus
}

var payoutRates = []float64{83.125, 280.5, 3.6725, 56.02, 1.0}

// GenerateScenario builds a deterministic scenario for config.Seed.
func GenerateScenario(config ScenarioConfig) (*Scenario, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(config.Seed))
	sc := &Scenario{Expected: make(map[string]models.FinalReconcileStatus)}
	next := 0
	newPin := func() string {
		next++
		return fmt.Sprintf("777%08d", next)
	}

	for i := 0; i < config.Reconciled; i++ {
		pin := newPin()
		usd := randomUSD(rng)
		sc.addSettlement(rng, pin, "Paid", usd)
		sc.addStatement(rng, pin, "Remittance", usd)
		sc.Expected[pin] = models.Reconciled
	}
	for i := 0; i < config.Mismatched; i++ {
		pin := newPin()
		usd := randomUSD(rng)
		sc.addSettlement(rng, pin, "Paid", usd)
		sc.addStatement(rng, pin, "Remittance", usd+0.05+float64(rng.Intn(5000))/100)
		sc.Expected[pin] = models.AmountMismatch
	}
	for i := 0; i < config.SettlementOnly; i++ {
		pin := newPin()
		sc.addSettlement(rng, pin, "Paid", randomUSD(rng))
		sc.Expected[pin] = models.MissingInStatement
	}
	for i := 0; i < config.StatementOnly; i++ {
		pin := newPin()
		sc.addStatement(rng, pin, "Remittance", randomUSD(rng))
		sc.Expected[pin] = models.MissingInSettlement
	}
	for i := 0; i < config.CancelledDuplicates; i++ {
		pin := newPin()
		usd := randomUSD(rng)
		sc.addSettlement(rng, pin, "Cancel", usd)
		sc.addSettlement(rng, pin, "Paid", usd)
		sc.addStatement(rng, pin, "Remittance", usd)
		sc.Expected[pin] = models.Reconciled
	}
	for i := 0; i < config.DollarReceived; i++ {
		pin := newPin()
		sc.addStatement(rng, pin, "Dollar Received", randomUSD(rng))
	}

	rng.Shuffle(len(sc.Statement), func(i, j int) {
		sc.Statement[i], sc.Statement[j] = sc.Statement[j], sc.Statement[i]
	})
	return sc, nil
}

func randomUSD(rng *rand.Rand) float64 {
	return float64(1000+rng.Intn(500000)) / 100
}

func (sc *Scenario) addSettlement(rng *rand.Rand, pin, action string, usd float64) {
	rate := payoutRates[rng.Intn(len(payoutRates))]
	payout := math.Round(usd*rate*100) / 100

	pinCell := Text(pin)
	if rng.Intn(2) == 0 {
		v, _ := strconv.ParseFloat(pin, 64)
		pinCell = Number(v)
	}

	sc.Settlement = append(sc.Settlement, SettlementEntry{
		PartnerPin:     pinCell,
		Action:         action,
		PayoutRoundAmt: Number(payout),
		APIRate:        Number(rate),
	})
}

func (sc *Scenario) addStatement(rng *rand.Rand, pin, txType string, usd float64) {
	var description string
	switch rng.Intn(3) {
	case 0:
		description = "Remittance transfer ref " + pin
	case 1:
		description = "XXP" + pin[3:] + " partner payout"
	default:
		description = pin + " /cash pickup"
	}

	amount := Number(usd)
	if rng.Intn(3) == 0 {
		amount = Text(fmt.Sprintf("$%s", formatThousands(usd)))
	}

	sc.Statement = append(sc.Statement, StatementEntry{
		Type:        txType,
		Description: description,
		SettleAmt:   amount,
	})
}

func formatThousands(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	intPart, frac := s[:len(s)-3], s[len(s)-3:]
	out := make([]byte, 0, len(s)+len(s)/3)
	for i := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, intPart[i])
	}
	return string(out) + frac
}
