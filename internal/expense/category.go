package expense

type Category string

const (
	CategoryFood             Category = "food"
	CategorySubscriptions    Category = "subscriptions"
	CategoryPhysicalShopping Category = "physical_shopping"
	CategoryDigitalShopping  Category = "digital_shopping"
	CategoryEntertainment    Category = "entertainment"
	CategoryEducation        Category = "education"
	CategoryTransport        Category = "transport"
	CategorySupermarket      Category = "supermarket"
	CategoryServices         Category = "services"
	CategoryGifts            Category = "gifts"
	CategoryHealth           Category = "health"
)

type CategoryInfo struct {
	ID    Category `json:"id"`
	Name  string   `json:"name"`
	Icon  string   `json:"icon"`
	Color string   `json:"color"`
}

var catalog = []CategoryInfo{
	{ID: CategoryFood, Name: "Food", Icon: "Utensils", Color: "#ef4444"},
	{ID: CategorySubscriptions, Name: "Subscriptions", Icon: "CreditCard", Color: "#3b82f6"},
	{ID: CategoryPhysicalShopping, Name: "Physical Shopping", Icon: "ShoppingBag", Color: "#22c55e"},
	{ID: CategoryDigitalShopping, Name: "Digital Shopping", Icon: "Briefcase", Color: "#a855f7"},
	{ID: CategoryEntertainment, Name: "Entertainment", Icon: "Tv", Color: "#eab308"},
	{ID: CategoryEducation, Name: "Education", Icon: "BookOpen", Color: "#6366f1"},
	{ID: CategoryTransport, Name: "Transport", Icon: "Car", Color: "#f97316"},
	{ID: CategorySupermarket, Name: "Supermarket", Icon: "ShoppingCart", Color: "#14b8a6"},
	{ID: CategoryServices, Name: "Services", Icon: "Scissors", Color: "#ec4899"},
	{ID: CategoryGifts, Name: "Gifts", Icon: "Gift", Color: "#f59e0b"},
	{ID: CategoryHealth, Name: "Health", Icon: "Heart", Color: "#f43f5f"},
}

// Categories returns a copy of the fixed category catalog.
func Categories() []CategoryInfo {
	return append([]CategoryInfo(nil), catalog...)
}

func (c Category) Valid() bool {
	_, ok := lookup(c)
	return ok
}

// Name returns the display name, or the raw id for unknown categories.
func (c Category) Name() string {
	if info, ok := lookup(c); ok {
		return info.Name
	}

	return string(c)
}

func lookup(c Category) (CategoryInfo, bool) {
	for _, info := range catalog {
		if info.ID == c {
			return info, true
		}
	}

	return CategoryInfo{}, false
}
