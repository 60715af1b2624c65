package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Generate — равномерно-случайный числовой код фиксированной длины.
// Ведущие нули допустимы. Источник — crypto/rand: код играет роль
// пароля, предсказуемый ГПСЧ здесь недопустим.
func Generate(length int) string {
	if length <= 0 {
		length = 4
	}
	limit := big.NewInt(1)
	for i := 0; i < length; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		// без энтропии выдавать коды нельзя
		panic(fmt.Sprintf("otp: rand source unavailable: %v", err))
	}
	return fmt.Sprintf("%0*d", length, n)
}
