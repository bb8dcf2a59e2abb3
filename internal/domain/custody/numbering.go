package custody

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/jhoicas/custodia-api/internal/domain"
)

// MaxOutboundPerYear límite de la numeración S{año}-NNNN.
const MaxOutboundPerYear = 9999

var (
	outboundRe     = regexp.MustCompile(`^S(\d{4})-(\d{4})$`)
	continuationRe = regexp.MustCompile(`-P\d+$`)
)

// FormatOutboundNumber construye el registro de salida S{año}-NNNN.
func FormatOutboundNumber(year, n int) (string, error) {
	if n < 1 {
		return "", fmt.Errorf("%w: consecutivo %d", domain.ErrInvalidInput, n)
	}
	if n > MaxOutboundPerYear {
		return "", fmt.Errorf("año %d: %w", year, domain.ErrSequenceExhausted)
	}
	return fmt.Sprintf("S%04d-%04d", year, n), nil
}

// ParseOutboundNumber extrae el consecutivo si number pertenece a la numeración de year.
func ParseOutboundNumber(year int, number string) (int, bool) {
	m := outboundRe.FindStringSubmatch(number)
	if m == nil {
		return 0, false
	}
	y, _ := strconv.Atoi(m[1])
	if y != year {
		return 0, false
	}
	n, _ := strconv.Atoi(m[2])
	return n, true
}

// HighestOutbound devuelve el mayor consecutivo de year entre numbers (0 si no hay).
func HighestOutbound(year int, numbers []string) int {
	highest := 0
	for _, num := range numbers {
		if n, ok := ParseOutboundNumber(year, num); ok && n > highest {
			highest = n
		}
	}
	return highest
}

// ContinuationNumber numeración de una página de continuación: {base}-P{n}.
func ContinuationNumber(base string, page int) string {
	return fmt.Sprintf("%s-P%d", base, page)
}

// IsContinuationNumber indica si number tiene forma de página de continuación.
// Un albarán independiente no puede usarla.
func IsContinuationNumber(number string) bool {
	return continuationRe.MatchString(number)
}

// NormalizeCode normaliza un código de catálogo: NFC, sin espacios extremos, en mayúsculas.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(norm.NFC.String(code)))
}

// NormalizeSerial normaliza un número de serie (solo NFC y espacios; distingue mayúsculas).
func NormalizeSerial(serial string) string {
	return strings.TrimSpace(norm.NFC.String(serial))
}
