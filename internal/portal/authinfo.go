package portal

import (
	"bytes"
	"crypto/des"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

const authNonceLimit = 10_000_000

// DeriveAuthInfo builds the hex authinfo value for the token request.
//
// The plaintext "<nonce>$<token>$<user>$<imei>$<ip>$<mac>$$CTC" is encrypted
// with 3DES-EDE in ECB mode and PKCS7 padding. The key is the literal first 24
// characters of the uppercase hex MD5 of the password.
func DeriveAuthInfo(password, token string, id Identity, nonce int) (string, error) {
	key := authKey(password)
	block, err := des.NewTripleDESCipher(key)
	if err != nil {
		return "", fmt.Errorf("authinfo cipher: %w", err)
	}

	plain := strings.Join([]string{
		strconv.Itoa(nonce), token, id.UserID, id.IMEI, id.Address, id.MAC, "", "CTC",
	}, "$")

	padded := pkcs7Pad([]byte(plain), block.BlockSize())
	out := make([]byte, len(padded))
	for off := 0; off < len(padded); off += block.BlockSize() {
		block.Encrypt(out[off:off+block.BlockSize()], padded[off:off+block.BlockSize()])
	}
	return strings.ToUpper(hex.EncodeToString(out)), nil
}

func authKey(password string) []byte {
	sum := md5.Sum([]byte(password))
	return []byte(strings.ToUpper(hex.EncodeToString(sum[:]))[:24])
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}
