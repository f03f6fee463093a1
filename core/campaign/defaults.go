package campaign

import (
	"slices"

	"github.com/gaurav-prasanna/muniwatch/core"
)

// Default weak-signal phrases, per category.
var (
	DefaultBudgetaryPhrases = []string{
		"plan pluriannuel d'investissement",
		"autorisation de programme",
		"crédits de paiement",
		"budget primitif",
		"inscription budgétaire",
		"inscrit au budget",
		"plan de financement",
		"demande de subvention",
		"dotation de soutien à l'investissement local",
		"dotation d'équipement des territoires ruraux",
	}
	DefaultReflectionPhrases = []string{
		"étude de faisabilité",
		"étude préalable",
		"étude d'opportunité",
		"étude énergétique",
		"diagnostic énergétique",
		"audit énergétique",
		"schéma directeur",
		"programmation énergétique",
		"note d'opportunité",
	}
	DefaultConsultationPhrases = []string{
		"appel à manifestation d'intérêt",
		"cahier des charges",
		"appel d'offres",
		"avis d'appel public à la concurrence",
		"dossier de consultation des entreprises",
		"consultation des entreprises",
		"mise en concurrence",
		"maîtrise d'œuvre",
		"marché public",
	}
)

// Default returns the biomass-heating campaign.
func Default() Campaign {
	return Campaign{
		Name:        "Chaufferies Biomasse AURA",
		Description: "Détection projets chaufferie en phase amont",
		Keywords: Keywords{
			Priority: []string{
				"chaufferie", "biomasse", "chaudière bois",
				"bois énergie", "réseau chaleur", "chaleur renouvelable",
			},
			Secondary: []string{
				"chauffage bois", "granulés", "plaquettes",
				"chaudière collective", "chaufferie collective", "modernisation chauffage",
			},
			Budget: []string{
				"budget", "crédit", "investissement", "subvention",
				"fonds chaleur", "ademe", "cee",
			},
		},
		Zones: Zones{
			Departments:   []string{"63", "03", "15", "43", "42", "69", "01", "07", "26", "38", "73", "74"},
			PopulationMin: 500,
			PopulationMax: 50000,
		},
		Scraping: ScrapingParameters{
			RequestDelaySeconds: 1.5,
			TimeoutSeconds:      30,
			MinConfidence:       2,
			Depth:               "moyen",
		},
		AIScoreThreshold: 7,
		WindowDays:       DefaultWindowDays,
		Signals:          SignalToggles{Budgetary: true, Reflection: true, Consultation: true},
		MaturityFloor:    core.MaturityReflexion,
	}
}

type preset struct {
	name        string
	description string
	keywords    Keywords
	aiThreshold int
}

var presets = map[string]preset{
	"chaufferies_biomasse": {
		name:        "Chaufferies Biomasse AURA",
		description: "Détection projets chaufferie en phase amont",
		keywords:    Default().Keywords,
		aiThreshold: 7,
	},
	"panneaux_solaires": {
		name:        "Panneaux Solaires / Photovoltaïque",
		description: "Détection projets solaires PV sur bâtiments publics",
		keywords: Keywords{
			Priority:  []string{"photovoltaïque", "panneaux solaires", "centrale solaire", "toiture solaire", "autoconsommation"},
			Secondary: []string{"énergie solaire", "ombrière", "carport solaire", "installation solaire", "raccordement réseau"},
			Budget:    []string{"budget", "investissement", "subvention", "prime autoconsommation", "cee", "ademe"},
		},
		aiThreshold: 7,
	},
	"pompes_chaleur": {
		name:        "Pompes à Chaleur",
		description: "Détection projets PAC pour bâtiments publics",
		keywords: Keywords{
			Priority:  []string{"pompe à chaleur", "géothermie", "aérothermie", "thermodynamique"},
			Secondary: []string{"chauffage renouvelable", "remplacement chaudière", "rénovation chauffage", "frigories"},
			Budget:    []string{"budget", "investissement", "subvention", "maprimerénov", "cee", "ademe"},
		},
		aiThreshold: 7,
	},
	"bornes_recharge": {
		name:        "Bornes de Recharge VE",
		description: "Détection projets bornes électriques véhicules",
		keywords: Keywords{
			Priority:  []string{"borne recharge", "véhicule électrique", "irve", "recharge électrique", "mobilité électrique"},
			Secondary: []string{"parking électrique", "infrastructure recharge", "point de charge", "charge rapide", "charge lente"},
			Budget:    []string{"budget", "investissement", "subvention", "advenir", "dsil", "detr"},
		},
		aiThreshold: 6,
	},
	"renovation_batiments": {
		name:        "Rénovation Bâtiments Publics",
		description: "Détection projets rénovation énergétique bâtiments communaux",
		keywords: Keywords{
			Priority:  []string{"rénovation énergétique", "isolation thermique", "performance énergétique", "dpe"},
			Secondary: []string{"isolation façade", "isolation toiture", "menuiseries", "ventilation", "audit énergétique", "bilan thermique"},
			Budget:    []string{"budget", "investissement", "subvention", "detr", "dsil", "certificats économies énergie"},
		},
		aiThreshold: 6,
	},
	"voirie_reseaux": {
		name:        "Voirie et Réseaux",
		description: "Détection projets voirie, assainissement, eau potable",
		keywords: Keywords{
			Priority:  []string{"voirie", "assainissement", "eau potable", "réseau eau", "chaussée"},
			Secondary: []string{"trottoir", "canalisations", "station épuration", "réseau pluvial", "éclairage public"},
			Budget:    []string{"budget", "investissement", "subvention", "detr", "dsil", "fonds européens"},
		},
		aiThreshold: 6,
	},
}

// PresetNames lists the built-in presets, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Preset returns the default campaign with a preset's topic applied.
func Preset(name string) (Campaign, bool) {
	p, ok := presets[name]
	if !ok {
		return Campaign{}, false
	}
	c := Default()
	c.Name = p.name
	c.Description = p.description
	c.Keywords = p.keywords
	c.AIScoreThreshold = p.aiThreshold
	return c, true
}

// EffectiveSignalPhrases resolves overrides against the defaults.
func (c Campaign) EffectiveSignalPhrases() SignalPhrases {
	out := SignalPhrases{
		Budgetary:    DefaultBudgetaryPhrases,
		Reflection:   DefaultReflectionPhrases,
		Consultation: DefaultConsultationPhrases,
	}
	if c.SignalPhrases.Budgetary != nil {
		out.Budgetary = c.SignalPhrases.Budgetary
	}
	if c.SignalPhrases.Reflection != nil {
		out.Reflection = c.SignalPhrases.Reflection
	}
	if c.SignalPhrases.Consultation != nil {
		out.Consultation = c.SignalPhrases.Consultation
	}
	return out
}
