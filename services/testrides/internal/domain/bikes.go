package domain

// Bike is one model customers can take out.
type Bike struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Class       string `json:"class"`
	Description string `json:"description"`
}

var catalogue = []Bike{
	{ID: "rad-power-bikes", Name: "Rad Power RadCity 5 Plus", Class: "commuter", Description: "Step-thru commuter with 750W hub motor"},
	{ID: "aventon-level", Name: "Aventon Level.2", Class: "commuter", Description: "Torque-sensing commuter with integrated lights"},
	{ID: "specialized-turbo-vado", Name: "Specialized Turbo Vado 4.0", Class: "urban", Description: "Mid-drive urban bike with suspension fork"},
	{ID: "trek-allant-plus", Name: "Trek Allant+ 7", Class: "urban", Description: "Bosch mid-drive, rack and fenders"},
	{ID: "gazelle-ultimate", Name: "Gazelle Ultimate C380", Class: "comfort", Description: "Belt drive with stepless hub gearing"},
}

// Bikes returns the catalogue in display order.
func Bikes() []Bike {
	out := make([]Bike, len(catalogue))
	copy(out, catalogue)
	return out
}

func LookupBike(id string) (Bike, bool) {
	for _, b := range catalogue {
		if b.ID == id {
			return b, true
		}
	}
	return Bike{}, false
}
