package migrate

// The legacy database identified departments, teams and axes by position
// rather than by a shared catalogue. The seed below recreates the LaBRI
// structure forest; legacy integer ids map onto it in declaration order.

type structureSeed struct {
	Nom      string
	Acronyme string
}

type departementSeed struct {
	structureSeed
	Equipes []structureSeed
}

const (
	kindDepartement = "Département"
	kindEquipe      = "Équipe"
	kindAxe         = "Axe"
)

var departements = []departementSeed{
	{
		structureSeed{"Combinatoire et Algorithmique", "CombAlgo"},
		[]structureSeed{
			{"Combinatoire et Interactions", "CI"},
			{"Graphes et Optimisation", "GO"},
			{"Algorithmique Distribuée", "AD"},
			{"Information et Calcul Quantique", "ICQ"},
		},
	},
	{
		structureSeed{"Image et Son", "I&S"},
		[]structureSeed{
			{"MANIOC", "MANIOC"},
			{"Traitement et analyse de données", "TAD"},
		},
	},
	{
		structureSeed{"Méthodes et Modèles Formels", "M2F"},
		[]structureSeed{
			{"Modèles et Technologies pour la Vérification", "MTV"},
			{"Fondements logiques du calcul", "LX"},
			{"Raisonnement sur les données, les connaissances et les contraintes", "RATIO"},
			{"Robotique et Systèmes de Transports Intelligents", "DART"},
			{"SYNTHESE", "SYNTHESE"},
		},
	},
	{
		structureSeed{"Supports et AlgoriThmes pour les Applications Numériques hAutes performanceS", "SATANAS"},
		[]structureSeed{
			{"STatic Optimizations, Runtime Methods", "STORM"},
			{"Topology-aware system-scale data management for high-performance computing", "TADaaM"},
			{"Tools and Optimization for high Performance Applications and Learning", "TOPAL"},
		},
	},
	{
		structureSeed{"Systèmes et Données", "SeD"},
		[]structureSeed{
			{"Programmation, Réseaux et Systèmes", "Progress"},
			{"Bench to Knowledge and Beyond", "BKB"},
			{"Numérique-et-soutenabilité", "NeS"},
		},
	},
	{
		structureSeed{"Soutien à la Recherche", "SAR"},
		[]structureSeed{
			{"Administration", "Administration"},
			{"Finance", "Finance"},
			{"Système", "Système"},
		},
	},
}

var axes = []structureSeed{
	{"Intelligence Artificielle", "IA"},
	{"Santé Numérique", "SN"},
}

// tutelles of the laboratory; resolved against etablissements by name.
var tutelles = []string{"CNRS", "Université de Bordeaux", "Bordeaux INP"}
