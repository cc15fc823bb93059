package core

// DefaultCategories is the suggested starting taxonomy. It is never enforced.
var DefaultCategories = map[Kind][]string{
	Income:  {"Salaire", "Freelance", "Investissements", "Cadeaux", "Autres revenus"},
	Expense: {"Alimentation", "Transport", "Logement", "Santé", "Loisirs", "Shopping", "Factures", "Éducation", "Autres dépenses"},
}
