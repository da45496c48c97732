package redis

import (
	"fmt"
)

// snapshotKey is the key that stores the JSON snapshot of one partition.
func snapshotKey(namespace, partition string) string {
	return fmt.Sprintf("BLOBSTORE:%s:SNAPSHOT:%s", namespace, partition)
}

// partitionsKey is the key of the set holding the name of every partition that has a snapshot.
func partitionsKey(namespace string) string {
	return fmt.Sprintf("BLOBSTORE:%s:PARTITIONS", namespace)
}
