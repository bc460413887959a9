package classify

// Categories a listing can be classified into
const (
	CategoryVehicle = "vehicle"
	CategoryPart    = "part"
)

// Chassis variant tags the classifier may assign
const (
	VariantR107 = "r107"
	VariantC107 = "c107"
)

// Result is the model's structured judgment on one feed item. Enum fields
// are validated before the result is handed to the persister.
type Result struct {
	Allow      bool     `json:"allow"`
	Reason     string   `json:"reason"`
	Category   string   `json:"category"`
	ModelTag   *string  `json:"model_tag"`
	VariantTag *string  `json:"variant_tag"`
	YearFrom   *int     `json:"year_from"`
	YearTo     *int     `json:"year_to"`
	Price      *float64 `json:"price"`
	Currency   *string  `json:"currency"`
	Confidence float64  `json:"confidence"`
}
