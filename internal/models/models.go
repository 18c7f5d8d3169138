package models

// All lists every persisted model for schema migration.
func All() []interface{} {
	return []interface{}{&User{}, &Assignment{}, &Submission{}, &ClassReport{}}
}
