package analysis

// QualityScore combines completeness and outlier rate into one number.
type QualityScore struct {
	Completeness float64 `json:"completeness"`
	OutlierRate  float64 `json:"outlierRate"`
	QualityScore float64 `json:"qualityScore"`
}

// QualityAssessor derives quality metrics from previously computed results.
// A metric whose analysis has not run counts as 0.0 instead of failing.
type QualityAssessor struct {
	results *Results
}

// NewQualityAssessor wraps an analysis results set.
func NewQualityAssessor(r *Results) *QualityAssessor {
	return &QualityAssessor{results: r}
}

// Completeness returns the overall completeness percentage, or 0.0 when the
// missing-value analysis has not run.
func (q *QualityAssessor) Completeness() float64 {
	if q.results == nil || q.results.Missing == nil {
		return 0.0
	}
	return q.results.Missing.OverallCompleteness
}

// OutlierRate returns the outlier percentage, or 0.0 when outlier detection
// has not run.
func (q *QualityAssessor) OutlierRate() float64 {
	if q.results == nil || q.results.Outliers == nil {
		return 0.0
	}
	return q.results.Outliers.Percentage
}

// Score computes the weighted quality score:
// 0.7*completeness + 0.3*(100 - outlier rate).
func (q *QualityAssessor) Score() QualityScore {
	completeness := q.Completeness()
	outlierRate := q.OutlierRate()

	return QualityScore{
		Completeness: completeness,
		OutlierRate:  outlierRate,
		QualityScore: completeness*0.7 + (100-outlierRate)*0.3,
	}
}
