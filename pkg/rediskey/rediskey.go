package rediskey

import "fmt"

// Identity keys
const (
	IdentityHandlePrefix = "identity:handle"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildIdentityHandleKey returns "identity:handle:{handle}"
func BuildIdentityHandleKey(handle string) string {
	return NamespaceKey(IdentityHandlePrefix, handle)
}
