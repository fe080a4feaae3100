package valuation

import (
	"fmt"
	"slices"
)

// CardProduct is a credit card that can be opened for its signup bonus.
type CardProduct struct {
	Name             string   `json:"name"`
	Bank             string   `json:"bank"`
	SignupBonus      int      `json:"signup_bonus"`
	AnnualFee        int      `json:"annual_fee"`
	MinSpend         int      `json:"min_spend"`
	TransferPartners []string `json:"transfer_partners"`
}

// AvailableCards are the products considered by EvaluateCardStrategy.
var AvailableCards = []CardProduct{
	{
		Name:             "Chase Sapphire Preferred",
		Bank:             "Chase",
		SignupBonus:      60000,
		AnnualFee:        95,
		MinSpend:         4000,
		TransferPartners: []string{"Aeroplan", "United MileagePlus"},
	},
	{
		Name:             "Amex Business Gold",
		Bank:             "Amex",
		SignupBonus:      125000,
		AnnualFee:        375,
		MinSpend:         10000,
		TransferPartners: []string{"Aeroplan", "Avianca LifeMiles"},
	},
}

// CardOption is a card evaluated against a shortfall.
type CardOption struct {
	CardProduct
	NetGain        int    `json:"net_gain"`
	Viable         bool   `json:"is_viable"`
	Recommendation string `json:"recommendation"`
}

// EvaluateCardStrategy ranks the cards transferring to program by the
// value of their bonus at cpp, net of the annual fee.
func EvaluateCardStrategy(shortfall int, program string, cpp float64) []CardOption {
	options := []CardOption{}
	for _, card := range AvailableCards {
		if !slices.Contains(card.TransferPartners, program) {
			continue
		}

		bonusValue := float64(card.SignupBonus) * cpp / 100
		coverage := 100
		if shortfall > 0 {
			coverage = min(100, roundHalfUp(float64(card.SignupBonus)/float64(shortfall)*100))
		}

		options = append(options, CardOption{
			CardProduct:    card,
			NetGain:        roundHalfUp(bonusValue - float64(card.AnnualFee)),
			Viable:         card.SignupBonus >= shortfall,
			Recommendation: fmt.Sprintf("Opening this card covers %d%% of your gap.", coverage),
		})
	}

	slices.SortStableFunc(options, func(a, b CardOption) int {
		return b.NetGain - a.NetGain
	})
	return options
}
