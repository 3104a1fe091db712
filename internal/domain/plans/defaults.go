package plans

// Defaults is the catalog seeded into an empty database. Provider price ids
// are filled in later by the admin sync.
func Defaults() []Plan {
	return []Plan{
		{
			Name: NameFree, DisplayName: "Free", Currency: "eur", Interval: "month",
			MaxUsers: Limit(3), MaxProperties: Limit(100), MaxContacts: Limit(250),
		},
		{
			Name: NameStarter, DisplayName: "Starter", PriceCents: 2900, Currency: "eur", Interval: "month",
			MaxUsers: Limit(10), MaxProperties: Limit(1000), MaxContacts: Limit(5000),
		},
		{
			Name: NameProfessional, DisplayName: "Professional", PriceCents: 7900, Currency: "eur", Interval: "month",
			MaxUsers: Limit(50), MaxProperties: Limit(10000), MaxContacts: Limit(50000), HasAPI: true,
		},
		{
			Name: NameEnterprise, DisplayName: "Enterprise", PriceCents: 19900, Currency: "eur", Interval: "month",
			HasAPI: true,
		},
	}
}
