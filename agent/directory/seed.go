package directory

import statex "github.com/tanpawarit/clinic-scheduling-assistant/agent/state"

// DemoPatients are the registered patients of the demo clinic.
func DemoPatients() []statex.Profile {
	return []statex.Profile{
		{ID: "1", Name: "John Doe", Phone: "111-111-1111", DOB: "1960-01-01", SSNLast4: "1111"},
		{ID: "2", Name: "Jim Beam", Phone: "222-222-2222", DOB: "1970-01-01", SSNLast4: "5678"},
		{ID: "3", Name: "Jill Johnson", Phone: "333-333-3333", DOB: "1980-01-01", SSNLast4: "9012"},
		{ID: "4", Name: "Jack Daniels", Phone: "444-444-4444", DOB: "1990-01-01", SSNLast4: "3456"},
	}
}
