// Package reference holds the static quick-reference cards for each PF
// withdrawal category. Card text is served verbatim.
package reference

import "strings"

// Card is one quick-reference entry.
type Card struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

var cards = []Card{
	{
		Title: "Unemployment",
		Body:  "**Unemployment**\n\n- **Eligibility:** After 1 month of unemployment.\n- **Amount:** 75% of the PF balance after 1 month. 100% after 2 months.\n- **Condition:** Must have worked for more than 1 month in the previous job.",
	},
	{
		Title: "Education (Self or Children)",
		Body:  "**Education (Self or Children)**\n\n- **Eligibility:** 7 years of contribution to EPF.\n- **Amount:** 50% of the employee's contribution for higher education or children's education after Class 10.\n- **Condition:** Must provide institution certificate for course details.",
	},
	{
		Title: "Marriage (Self, Son, Daughter, Sibling)",
		Body:  "**Marriage (Self, Son, Daughter, Sibling)**\n\n- **Eligibility:** 7 years of contribution to EPF.\n- **Amount:** 50% of the employee's contribution for marriage expenses.\n- **Condition:** For self, son, daughter, brother, sister only.",
	},
	{
		Title: "Medical Emergency (Self or Family)",
		Body:  "**Medical Emergency (Self or Family)**\n\n- **Eligibility:** No minimum service period required.\n- **Amount:** 6 months of basic wages or employee share with interest (whichever is lesser).\n- **Condition:** Applicable for both self and family treatment.",
	},
	{
		Title: "Specially-abled Individuals",
		Body:  "**Specially-abled Individuals**\n\n- **Eligibility:** No minimum service period required.\n- **Amount:** 6 months of basic wages or employee share with interest (whichever is lesser) for purchasing equipment for disability.\n- **Condition:** Requires doctor's certificate for eligibility.",
	},
	{
		Title: "Home Loan Repayment",
		Body:  "**Home Loan Repayment**\n\n- **Eligibility:** 10 years of contribution to EPF.\n- **Amount:** 36 months of basic wages + DA or total of employee and employer share (whichever is lesser) for paying home loan EMIs.\n- **Condition:** Available only after 10 years of service.",
	},
	{
		Title: "Purchase of House/Flat or Land Plot",
		Body:  "**Purchase of House/Flat or Land Plot**\n\n- **Eligibility:** 5 years of contribution to EPF.\n- **Amount:** 24 months of basic wages and DA for site purchase or 36 months of basic wages and DA for house purchase/flat cost/property or total contribution.\n- **Condition:** The amount withdrawn should be the lesser of employee + employer share, property cost, or total contribution.",
	},
	{
		Title: "Home Renovation",
		Body:  "**Home Renovation**\n\n- **Eligibility:** 5 years of contribution to EPF.\n- **Amount:** 12 months of basic wages and DA, or employee share with interest (whichever is lesser) for home renovation/expansion.\n- **Condition:** Available 2 times: once after 5 years of property completion and again after 10 years.",
	},
	{
		Title: "Retirement (Within 1 Year of Retirement)",
		Body:  "**Retirement (Within 1 Year of Retirement)**\n\n- **Eligibility:** 54 years of age and within 1 year of retirement/superannuation.\n- **Amount:** 90% of the PF balance (whichever is lesser).\n- **Condition:** Can be done within 1 year before retirement.",
	},
	{
		Title: "Death of Employee (Nominee)",
		Body:  "**Death of Employee (Nominee)**\n\n- **Eligibility:** No minimum service period required.\n- **Amount:** Full PF balance transferred to nominee.\n- **Condition:** Form 20 for settlement, Form 10D for monthly pension.",
	},
	{
		Title: "Other Emergencies (Natural Calamities, etc.)",
		Body:  "**Other Emergencies (Natural Calamities, etc.)**\n\n- **Eligibility:** NA\n- **Amount:** Full Employee share with interest for calamity-related emergencies.\n- **Condition:** Affected by natural disasters like earthquakes, floods.",
	},
}

// All returns every card in display order.
func All() []Card {
	out := make([]Card, len(cards))
	copy(out, cards)
	return out
}

// Titles returns the card titles in display order.
func Titles() []string {
	titles := make([]string, len(cards))
	for i, c := range cards {
		titles[i] = c.Title
	}
	return titles
}

// Lookup finds a card by title, ignoring case and surrounding space.
func Lookup(title string) (Card, bool) {
	title = strings.TrimSpace(title)
	for _, c := range cards {
		if strings.EqualFold(c.Title, title) {
			return c, true
		}
	}
	return Card{}, false
}
