package config

import "time"

const (
	storeEnvVar         = "STORE"
	mongoURIEnvVar      = "MONGO_URI"
	mongoDatabaseEnvVar = "MONGO_DATABASE"
)

// Store backends
const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type StoreConfig interface {
	GetStore() string
	GetMongoURI() string
	GetMongoDatabase() string
	GetMongoConnectTimeout() time.Duration
}

type Store struct{}

var _ StoreConfig = Store{}

// GetStore selects the persistence backend, "mongo" or "memory"
func (Store) GetStore() string {
	return GetEnv(storeEnvVar, StoreMongo)
}

func (Store) GetMongoURI() string {
	return GetEnv(mongoURIEnvVar, "mongodb://localhost:27017")
}

func (Store) GetMongoDatabase() string {
	return GetEnv(mongoDatabaseEnvVar, "timeToMeet")
}

func (Store) GetMongoConnectTimeout() time.Duration {
	return 10 * time.Second
}
