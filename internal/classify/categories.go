package classify

// categoryRule maps a set of merchant-name keywords to a spending category.
// Rules are evaluated in order; the first keyword hit wins.
type categoryRule struct {
	ID       string
	Name     string
	Keywords []string
}

// defaultRules is the built-in ordered keyword table. Earlier rules take
// precedence, so more specific categories sit above broader ones.
var defaultRules = []categoryRule{
	{ID: "groceries", Name: "Groceries", Keywords: []string{
		"grocery", "market", "supermarket", "foods", "trader joe", "whole foods",
		"safeway", "kroger", "aldi", "costco", "wegmans",
	}},
	{ID: "dining", Name: "Dining", Keywords: []string{
		"restaurant", "cafe", "coffee", "pizza", "burger", "sushi", "grill",
		"diner", "bakery", "starbucks", "chipotle", "mcdonald",
	}},
	{ID: "transport", Name: "Transport", Keywords: []string{
		"uber", "lyft", "taxi", "transit", "metro", "parking", "shell",
		"chevron", "exxon", "gas station", "fuel",
	}},
	{ID: "travel", Name: "Travel", Keywords: []string{
		"airline", "airways", "hotel", "motel", "airbnb", "hertz", "delta",
		"united", "marriott", "hilton",
	}},
	{ID: "shopping", Name: "Shopping", Keywords: []string{
		"amazon", "target", "walmart", "best buy", "ikea", "home depot",
		"store", "shop", "outlet",
	}},
	{ID: "utilities", Name: "Utilities", Keywords: []string{
		"electric", "water", "internet", "wireless", "telecom", "comcast",
		"verizon", "at&t", "utility",
	}},
	{ID: "health", Name: "Health", Keywords: []string{
		"pharmacy", "cvs", "walgreens", "clinic", "medical", "dental",
		"hospital", "optical",
	}},
	{ID: "entertainment", Name: "Entertainment", Keywords: []string{
		"cinema", "theater", "netflix", "spotify", "concert", "museum",
		"tickets", "games",
	}},
	{ID: "office", Name: "Office", Keywords: []string{
		"staples", "office depot", "fedex", "ups store", "printing",
	}},
}
