package stores

import (
	"os"

	"watchparty/core"
	"watchparty/stores/aws"
	"watchparty/stores/filesystem"
	"watchparty/stores/memory"
	"watchparty/stores/sqlite"

	"github.com/sirupsen/logrus"
)

// Store is the union metadata interface: rooms, movies and users.
type Store interface {
	core.RoomStore
	core.MovieStore
	core.UserStore
}

// GetStore picks the metadata store from STORAGE_TYPE.
func GetStore() Store {
	storageType := os.Getenv("STORAGE_TYPE")
	var store Store

	storageField := logrus.Fields{
		"storageType": storageType,
	}

	switch storageType {
	case "sqlite":
		dataSourceName := os.Getenv("DATA_SOURCE_NAME")
		if dataSourceName == "" {
			dataSourceName = "watchparty.db" // Default filename
		}
		storageField["dataSourceName"] = dataSourceName
		store = sqlite.NewStore(dataSourceName)
	default:
		store = memory.NewStore()
		storageField["storageType"] = "in-memory"
	}
	logrus.WithFields(storageField).Info("Use metadata storage")
	return store
}

// GetBlobStore picks where movie binaries live from BLOB_STORAGE_TYPE.
func GetBlobStore() core.BlobStore {
	storageType := os.Getenv("BLOB_STORAGE_TYPE")
	var store core.BlobStore

	storageField := logrus.Fields{
		"blobStorageType": storageType,
	}

	switch storageType {
	case "filesystem":
		basePath := os.Getenv("LOCAL_STORAGE_PATH")
		if basePath == "" {
			basePath = "./data" // Default path
		}
		storageField["basePath"] = basePath
		store = filesystem.NewStore(basePath)
	case "s3":
		bucketName := os.Getenv("S3_BUCKET_NAME")
		if bucketName == "" {
			logrus.Fatal("S3_BUCKET_NAME environment variable must be set for s3 blob storage")
		}
		storageField["bucketName"] = bucketName
		store = aws.NewStore(bucketName)
	default:
		store = memory.NewBlobStore()
		storageField["blobStorageType"] = "in-memory"
	}
	logrus.WithFields(storageField).Info("Use blob storage")
	return store
}
