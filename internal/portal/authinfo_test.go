package portal

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upperHex = regexp.MustCompile(`^[0-9A-F]+$`)

func TestAuthKey_FirstTwentyFourUppercaseHexChars(t *testing.T) {
	// md5("password") = 5f4dcc3b5aa765d61d8327deb882cf99
	assert.Equal(t, "5F4DCC3B5AA765D61D8327DE", string(authKey("password")))
	assert.Len(t, authKey(""), 24)
}

func TestDeriveAuthInfo_RoundTrip(t *testing.T) {
	id := Identity{UserID: "user01", IMEI: "860000000000001", Address: "10.1.2.3", MAC: "00:11:22:33:44:55"}

	out, err := DeriveAuthInfo("secret", "TOKEN42", id, 1234567)
	require.NoError(t, err)
	assert.Regexp(t, upperHex, out)
	assert.Zero(t, len(out)%16, "ciphertext must be whole 8-byte blocks")

	plain, err := DecryptAuthInfo("secret", out)
	require.NoError(t, err)
	assert.Equal(t, "1234567$TOKEN42$user01$860000000000001$10.1.2.3$00:11:22:33:44:55$$CTC", plain)
}

func TestDeriveAuthInfo_KnownAnswer(t *testing.T) {
	// openssl enc -des-ede3 -nosalt -K <hex of "5EBE2294ECD0E0F08EAB7690">
	const want = "442E8BDCDBE8BB4EAEB861F26E35D7FC58E80E34F53ADEB6F77A1ED534605A97" +
		"3717395D2B99D37A099C65AD57183F1FE6A85E8890232FB83438F15F2CD70C7C" +
		"76C0F510BCDD4485"
	id := Identity{UserID: "user01", IMEI: "860000000000001", Address: "10.1.2.3", MAC: "00:11:22:33:44:55"}

	out, err := DeriveAuthInfo("secret", "TOKEN42", id, 1234567)
	require.NoError(t, err)
	assert.Equal(t, want, out)
}

func TestDeriveAuthInfo_Deterministic(t *testing.T) {
	id := Identity{UserID: "u", IMEI: "i", Address: "a", MAC: "m"}
	a, err := DeriveAuthInfo("pw", "tok", id, 7)
	require.NoError(t, err)
	b, err := DeriveAuthInfo("pw", "tok", id, 7)
	require.NoError(t, err)
	c, err := DeriveAuthInfo("pw", "tok", id, 8)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestDeriveAuthInfo_FullBlockPadding(t *testing.T) {
	// "0$$$$$$$CTC" is 11 bytes; choose a token so the plaintext is exactly 16.
	id := Identity{}
	out, err := DeriveAuthInfo("pw", "abcde", id, 0)
	require.NoError(t, err)
	// 16 bytes of plaintext plus a full block of padding.
	assert.Len(t, out, 48)

	plain, err := DecryptAuthInfo("pw", out)
	require.NoError(t, err)
	assert.Equal(t, "0$abcde$$$$$$CTC", plain)
}

func TestDecryptAuthInfo_WrongPassword(t *testing.T) {
	out, err := DeriveAuthInfo("right", "tok", Identity{UserID: "u"}, 1)
	require.NoError(t, err)

	plain, err := DecryptAuthInfo("wrong", out)
	if err == nil {
		assert.NotEqual(t, "1$tok$u$$$$$CTC", plain)
	}
}
