package utils

import (
	"crypto/md5"
	"fmt"
)

func HashBytes(input []byte) string {
	hash := md5.Sum(input)
	return fmt.Sprintf("%x", hash)
}
