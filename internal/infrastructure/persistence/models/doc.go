// Package models contains GORM persistence models that map to sink tables.
// They are kept apart from the domain types so the normalizer stays free of
// ORM tags; mappers convert between the two.
package models
