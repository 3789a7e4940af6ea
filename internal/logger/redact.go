package logger

import "strings"

// MaskAccount keeps only the last 4 characters of an account number.
// "4111111111111111" → "************1111"
// Values of 4 characters or fewer are fully masked: "1234" → "****"
func MaskAccount(account string) string {
	if len(account) <= 4 {
		return strings.Repeat("*", len(account))
	}
	return strings.Repeat("*", len(account)-4) + account[len(account)-4:]
}

// maskValue masks fields whose key names an account or card number.
// Values are not scanned: artifact names carry 14-digit timestamps that
// would be indistinguishable from card numbers.
func maskValue(key, val string) string {
	key = strings.ToLower(key)
	if strings.HasPrefix(key, "account") || key == "pan" || strings.HasSuffix(key, "_pan") {
		return MaskAccount(val)
	}
	return val
}
