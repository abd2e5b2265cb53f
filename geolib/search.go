package geolib

// BinarySearch looks for target in the list sorted ascending. It
// returns an index of the exact match or an index of the greatest
// element which is less than target. If target is smaller than every
// element (or the list is empty), ok is false.
func BinarySearch[T any](list []T, target T, cmp func(a, b T) int) (int, bool) {
	low := 0
	high := len(list) - 1

	for low <= high {
		mid := int(uint(low+high) >> 1)

		switch c := cmp(target, list[mid]); {
		case c < 0:
			high = mid - 1
		case c > 0:
			low = mid + 1
		default:
			return mid, true
		}
	}

	return high, high >= 0
}
