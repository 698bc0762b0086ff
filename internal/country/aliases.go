package country

// aliasGroups lists country names that refer to the same place. The first
// entry of each group is its canonical name. A name appears in at most one group.
var aliasGroups = [][]string{
	{"united states", "usa", "us", "u.s.", "u.s.a.", "united states of america", "america"},
	{"united kingdom", "uk", "u.k.", "great britain", "britain"},
	{"united arab emirates", "uae"},
	{"south korea", "korea", "republic of korea"},
	{"north korea", "dprk", "democratic people's republic of korea"},
	{"russia", "russian federation"},
	{"czechia", "czech republic"},
	{"côte d'ivoire", "cote d'ivoire", "ivory coast"},
	{"myanmar", "burma"},
	{"netherlands", "the netherlands", "holland"},
	{"democratic republic of the congo", "drc", "dr congo", "congo-kinshasa"},
	{"republic of the congo", "congo-brazzaville"},
	{"eswatini", "swaziland"},
	{"timor-leste", "east timor"},
	{"vietnam", "viet nam"},
	{"iran", "islamic republic of iran"},
	{"laos", "lao pdr", "lao people's democratic republic"},
	{"bolivia", "plurinational state of bolivia"},
	{"tanzania", "united republic of tanzania"},
	{"syria", "syrian arab republic"},
	{"cabo verde", "cape verde"},
	{"türkiye", "turkey", "turkiye"},
	{"philippines", "the philippines"},
	{"gambia", "the gambia"},
}

var groupIndex = buildIndex()

func buildIndex() map[string]int {
	idx := make(map[string]int)
	for i, group := range aliasGroups {
		for _, name := range group {
			idx[normalize(name)] = i
		}
	}
	return idx
}
