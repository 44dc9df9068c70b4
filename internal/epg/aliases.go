package epg

// brandAliases maps well-known channel brands to their canonical guide ids.
// Brazilian guides key channels as "<Brand>.br"; upstream catalogs spell the
// same brands with arbitrary casing, spacing, and punctuation. Lookup happens
// through NormalizeName, so "A&E", "a & e", and "A&E HD" all land on AE.br.
var brandAliases = map[string]string{
	"A&E":                 "AE.br",
	"AXN":                 "AXN.br",
	"Animal Planet":       "AnimalPlanet.br",
	"Band":                "Band.br",
	"Band News":           "BandNews.br",
	"Band Sports":         "BandSports.br",
	"Cartoon Network":     "CartoonNetwork.br",
	"Cinemax":             "Cinemax.br",
	"CNN Brasil":          "CNNBrasil.br",
	"Combate":             "Combate.br",
	"Comedy Central":      "ComedyCentral.br",
	"Discovery Channel":   "Discovery.br",
	"Discovery Kids":      "DiscoveryKids.br",
	"Discovery Turbo":     "DiscoveryTurbo.br",
	"Disney Channel":      "DisneyChannel.br",
	"ESPN":                "ESPN.br",
	"ESPN 2":              "ESPN2.br",
	"ESPN 4":              "ESPN4.br",
	"Food Network":        "FoodNetwork.br",
	"Fox Sports":          "FoxSports.br",
	"FX":                  "FX.br",
	"Globo":               "Globo.br",
	"GloboNews":           "GloboNews.br",
	"Gloob":               "Gloob.br",
	"GNT":                 "GNT.br",
	"HBO":                 "HBO.br",
	"HBO 2":               "HBO2.br",
	"History":             "History.br",
	"Lifetime":            "Lifetime.br",
	"Megapix":             "Megapix.br",
	"MTV":                 "MTV.br",
	"Multishow":           "Multishow.br",
	"National Geographic": "NatGeo.br",
	"Nickelodeon":         "Nickelodeon.br",
	"Paramount":           "Paramount.br",
	"Premiere":            "Premiere.br",
	"Record":              "Record.br",
	"Record News":         "RecordNews.br",
	"SBT":                 "SBT.br",
	"Sony":                "Sony.br",
	"Space":               "Space.br",
	"SporTV":              "SporTV.br",
	"SporTV 2":            "SporTV2.br",
	"SporTV 3":            "SporTV3.br",
	"Telecine Action":     "TelecineAction.br",
	"Telecine Premium":    "TelecinePremium.br",
	"TLC":                 "TLC.br",
	"TNT":                 "TNT.br",
	"Universal":           "Universal.br",
	"Viva":                "Viva.br",
	"Warner":              "Warner.br",
}

// normalizedAliases is brandAliases keyed by NormalizeName output, built once.
var normalizedAliases = func() map[string]string {
	out := make(map[string]string, len(brandAliases))
	for brand, id := range brandAliases {
		out[NormalizeName(brand)] = id
	}
	return out
}()

// aliasTarget resolves a query to a canonical guide id through the brand
// dictionary, or "" when the query names no known brand.
func aliasTarget(query string) string {
	return normalizedAliases[NormalizeName(query)]
}

// aliasNamesFor returns the normalized brand names that point at a guide id.
// Used to register synthesized index aliases for channels whose id matches a
// dictionary target.
func aliasNamesFor(guideID string) []string {
	var names []string
	for key, id := range normalizedAliases {
		if id == guideID {
			names = append(names, key)
		}
	}
	return names
}
