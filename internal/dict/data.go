package dict

// defaultTranscriptionErrors maps miswritings that show up in
// speech-to-text output (video transcripts mostly) to their known
// corrections. Keys are verbatim as observed.
var defaultTranscriptionErrors = map[string]string{
	// Brand name errors
	"Durst":               "Durston",
	"Durstin":             "Durston",
	"Arc'o":               "Arc Haul",
	"Arko":                "Arc Haul",
	"Zpack":               "Zpacks",
	"Z pack":              "Zpacks",
	"Z-pack":              "Zpacks",
	"Thermarest":          "Therm-a-Rest",
	"Therma rest":         "Therm-a-Rest",
	"Therma-rest":         "Therm-a-Rest",
	"Thermorest":          "Therm-a-Rest",
	"Gossamer":            "Gossamer Gear",
	"Six moon":            "Six Moon Designs",
	"6 moon":              "Six Moon Designs",
	"UL Equipment":        "Enlightened Equipment",
	"Enlighten Equipment": "Enlightened Equipment",
	"Hyper Lite":          "Hyperlite Mountain Gear",
	"Hyperlite MG":        "Hyperlite Mountain Gear",
	"Sea 2 Summit":        "Sea to Summit",
	"Sea-to-Summit":       "Sea to Summit",
	"Big Agnus":           "Big Agnes",
	"Big Agness":          "Big Agnes",
	"Nemo Equipment":      "NEMO Equipment",

	// Product name errors
	"X Mid":    "X-Mid",
	"X-mid":    "X-Mid",
	"XMID":     "X-Mid",
	"Z Lite":   "Z Lite Sol",
	"Zlite":    "Z Lite Sol",
	"Neo Air":  "NeoAir",
	"Neo-Air":  "NeoAir",
	"Atmos 65": "Atmos AG 65",
	"Exos 58":  "Exos 58",
}

// defaultCanonicalBrands maps brand spellings (abbreviations, casing
// variants) to the canonical form. Keys are lowercased at load time.
var defaultCanonicalBrands = map[string]string{
	"zpacks":                  "Zpacks",
	"thermarest":              "Therm-a-Rest",
	"therm-a-rest":            "Therm-a-Rest",
	"therma-rest":             "Therm-a-Rest",
	"nemo":                    "NEMO Equipment",
	"msr":                     "MSR",
	"osprey":                  "Osprey",
	"big agnes":               "Big Agnes",
	"sea to summit":           "Sea to Summit",
	"hyperlite":               "Hyperlite Mountain Gear",
	"hmg":                     "Hyperlite Mountain Gear",
	"gossamer gear":           "Gossamer Gear",
	"gg":                      "Gossamer Gear",
	"enlightened equipment":   "Enlightened Equipment",
	"ee":                      "Enlightened Equipment",
	"ula":                     "ULA Equipment",
	"six moon designs":        "Six Moon Designs",
	"smd":                     "Six Moon Designs",
	"mountain laurel designs": "Mountain Laurel Designs",
	"mld":                     "Mountain Laurel Designs",
	"western mountaineering":  "Western Mountaineering",
	"wm":                      "Western Mountaineering",
	"katabatic":               "Katabatic Gear",
	"tarptent":                "Tarptent",
	"tarp tent":               "Tarptent",
	"black diamond":           "Black Diamond",
	"bd":                      "Black Diamond",
	"patagonia":               "Patagonia",
	"arc'teryx":               "Arc'teryx",
	"arcteryx":                "Arc'teryx",
	"outdoor research":        "Outdoor Research",
	"or":                      "Outdoor Research",
}

// defaultGenericTerms are category words that show up in brand fields
// when extraction goes wrong. A brand equal to one of these is invalid.
var defaultGenericTerms = []string{
	"backpack",
	"tent",
	"bag",
	"ultralight",
	"gear",
	"sleeping bag",
	"down jacket",
	"hiking",
	"camping",
	"outdoor",
	"trail",
}
