package models

// Field names one platform-reported attribute.
type Field string

const (
	FieldTargetAmount         Field = "target_amount"
	FieldCollectedAmount      Field = "collected_amount"
	FieldProgressPercentage   Field = "progress_percentage"
	FieldExpectedReturn       Field = "expected_return"
	FieldProjectDuration      Field = "project_duration"
	FieldCapitalGuarantee     Field = "capital_guarantee"
	FieldProjectType          Field = "project_type"
	FieldProjectSymbol        Field = "project_symbol"
	FieldInvestorCount        Field = "investor_count"
	FieldPaymentFrequency     Field = "profit_payment_frequency"
	FieldStartDateOnPlatform  Field = "start_date_on_platform"
	FieldPlatformName         Field = "platform_name"
	FieldFinancialInstitution Field = "financial_institution"
	FieldProjectIDOnPlatform  Field = "project_id_on_platform"
	FieldThumbnailURL         Field = "thumbnail_url"
	FieldApplicantName        Field = "applicant_name"
	FieldTitleOnPlatform      Field = "title_on_platform"
	FieldStatusOnPlatform     Field = "status_on_platform"
	FieldDetailsPageURL       Field = "details_page_url"
	FieldProgressWidth        Field = "progress_width"
)

// DetailFields lists every Field in output order.
var DetailFields = []Field{
	FieldTargetAmount,
	FieldCollectedAmount,
	FieldProgressPercentage,
	FieldExpectedReturn,
	FieldProjectDuration,
	FieldCapitalGuarantee,
	FieldProjectType,
	FieldProjectSymbol,
	FieldInvestorCount,
	FieldPaymentFrequency,
	FieldStartDateOnPlatform,
	FieldPlatformName,
	FieldFinancialInstitution,
	FieldProjectIDOnPlatform,
	FieldThumbnailURL,
	FieldApplicantName,
	FieldTitleOnPlatform,
	FieldStatusOnPlatform,
	FieldDetailsPageURL,
	FieldProgressWidth,
}

// Fields is a partial mapping produced by a platform adapter.
type Fields map[Field]string

// Set stores v under f unless v is empty.
func (f Fields) Set(field Field, v string) {
	if v == "" {
		return
	}
	f[field] = v
}

// Has reports whether field holds a non-empty value.
func (f Fields) Has(field Field) bool {
	return f[field] != ""
}

// Merge copies the values of other whose keys are still empty in f.
func (f Fields) Merge(other Fields) {
	for k, v := range other {
		if v == "" || f.Has(k) {
			continue
		}
		f[k] = v
	}
}
