package core

// DefaultCategories is the template copied for every new user, in order.
var DefaultCategories = []Category{
	{Name: "Food", Type: Expense, Color: "#ef4444", Icon: "fast-food"},
	{Name: "Transport", Type: Expense, Color: "#f59e0b", Icon: "car"},
	{Name: "Housing", Type: Expense, Color: "#8b5cf6", Icon: "home"},
	{Name: "Utilities", Type: Expense, Color: "#06b6d4", Icon: "flash"},
	{Name: "Entertainment", Type: Expense, Color: "#ec4899", Icon: "game-controller"},
	{Name: "Health", Type: Expense, Color: "#10b981", Icon: "medical"},
	{Name: "Education", Type: Expense, Color: "#3b82f6", Icon: "school"},
	{Name: "Shopping", Type: Expense, Color: "#f43f5e", Icon: "cart"},

	{Name: "Salary", Type: Income, Color: "#22c55e", Icon: "cash"},
	{Name: "Freelance", Type: Income, Color: "#14b8a6", Icon: "briefcase"},
	{Name: "Investments", Type: Income, Color: "#6366f1", Icon: "trending-up"},
	{Name: "Other income", Type: Income, Color: "#84cc16", Icon: "wallet"},
}

// Icons is the closed set of icon names a category may use.
var Icons = []string{
	DefaultIcon,
	"fast-food", "car", "home", "flash", "game-controller", "medical",
	"school", "cart", "cash", "briefcase", "trending-up", "wallet",
	"card", "gift", "shirt", "fitness", "airplane", "phone", "laptop",
	"restaurant", "cafe", "pizza", "beer", "paw", "construct", "train",
}

var iconSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Icons))
	for _, icon := range Icons {
		m[icon] = struct{}{}
	}
	return m
}()

func IsKnownIcon(icon string) bool {
	_, ok := iconSet[icon]
	return ok
}
