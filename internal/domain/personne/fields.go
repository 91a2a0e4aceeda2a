package personne

// AllowedFields is the PATCH allow-list, in SET-clause order.
var AllowedFields = []string{"nom", "prenom", "sexe", "nationalite", "date_naissance"}
