package calculate

// Mean is the simple average of values, 0 for none
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, value := range values {
		sum += value
	}

	return sum / float64(len(values))
}

// averageEndingAt is the mean of the period closes ending at index end (inclusive)
func averageEndingAt(closes []float64, end, period int) float64 {
	return Mean(closes[end-period+1 : end+1])
}
