package database

import "github.com/google/wire"

// ProviderSet is the Wire provider set for the database package.
var ProviderSet = wire.NewSet(ProvideDatabase)

// ProvideDatabase provides the IDatabase implementation.
func ProvideDatabase(cfg Database) (IDatabase, error) {
	db, err := NewDatabase(cfg)
	if err != nil {
		return nil, err
	}
	return NewGormDB(db), nil
}
