package utils

import (
	"math/rand"
	"regexp"
	"strconv"
	"time"
	"unicode/utf8"
)

var (
	src       = rand.NewSource(time.Now().UnixNano())
	nameRegex = regexp.MustCompile("(?i)^[a-zа-яА-Я0-9]+[a-zа-яА-Я0-9 :_-]*[a-zа-яА-Я0-9]+$")
	hexRegex  = regexp.MustCompile("(?i)^#(?:[0-9a-f]{3}|[0-9a-f]{6}|[0-9a-f]{8})$")
)

const letterBytes = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
const (
	letterIdxBits = 6                    // 6 bits to represent a letter index
	letterIdxMask = 1<<letterIdxBits - 1 // All 1-bits, as many as letterIdxBits
	letterIdxMax  = 63 / letterIdxBits   // # of letter indices fitting in 63 bits
)

// Returns a random string of the specified length
func RandString(length int) string {
	b := make([]byte, length)
	for i, cache, remain := length-1, src.Int63(), letterIdxMax; i >= 0; {
		if remain == 0 {
			cache, remain = src.Int63(), letterIdxMax
		}
		if idx := int(cache & letterIdxMask); idx < len(letterBytes) {
			b[i] = letterBytes[idx]
			i--
		}
		cache >>= letterIdxBits
		remain--
	}

	return string(b)
}

// ParseInt converts val to int by min max conditions, on error returns default value
func ParseInt(val string, def, min, max int) int {
	v, _ := strconv.Atoi(val)
	if v < min || v > max {
		v = def
	}
	return v
}

func IsLengthValid(str string, minLen, maxLen int) bool {
	length := utf8.RuneCountInString(str)
	return length >= minLen && length <= maxLen
}

func IsNameValid(name string) bool {
	return IsLengthValid(name, 2, 100) && nameRegex.MatchString(name)
}

// IsHexColor reports whether s looks like a #rgb, #rrggbb or #rrggbbaa color.
func IsHexColor(s string) bool {
	return hexRegex.MatchString(s)
}
