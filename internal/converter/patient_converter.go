package converter

import (
	"time"

	"clinic-frontdesk/internal/delivery/dto"
	"clinic-frontdesk/internal/domain/entity"
	"clinic-frontdesk/internal/usecase"
)

// RegisterRequestToRegistration converts the request DTO to the usecase
// input. BirthDate has already been validated as YYYY-MM-DD.
func RegisterRequestToRegistration(req *dto.RegisterPatientRequest) *usecase.RegistrationRequest {
	attrs := entity.IdentityAttributes{
		Name:          req.Name,
		Phone:         req.Phone,
		Gender:        req.Gender,
		Height:        req.Height,
		Weight:        req.Weight,
		BloodPressure: req.BloodPressure,
		Personality:   req.Personality,
		WorkIntensity: req.WorkIntensity,
	}
	if req.BirthDate != nil {
		if birthDate, err := time.Parse("2006-01-02", *req.BirthDate); err == nil {
			attrs.BirthDate = &birthDate
		}
	}

	return &usecase.RegistrationRequest{
		NationalID: req.NationalID,
		Attributes: attrs,
		Visit:      VisitRequestToRecord(req.Visit),
	}
}

func VisitRequestToRecord(req *dto.VisitRequest) *entity.VisitRecord {
	if req == nil {
		return nil
	}

	visit := &entity.VisitRecord{
		PulseWave:        entity.PulseWave(req.PulseWave),
		StressCategories: req.StressCategories,
		StressScore:      req.StressScore,
		StressLevel:      req.StressLevel,
		Symptoms:         req.Symptoms,
		Drugs:            req.Drugs,
		Preferences:      req.Preferences,
		Allergies:        req.Allergies,
		SideEffects:      req.SideEffects,
		Memo:             req.Memo,
	}
	if req.MeasurementDate != nil {
		visit.MeasurementDate = *req.MeasurementDate
	}
	return visit
}

// PatientToResponse converts a PatientIdentity entity to PatientResponse DTO.
// Age is derived as of now.
func PatientToResponse(identity *entity.PatientIdentity, now time.Time) *dto.PatientResponse {
	if identity == nil {
		return nil
	}

	response := &dto.PatientResponse{
		ID:            identity.ID,
		NationalID:    identity.NationalID,
		Name:          identity.Name,
		Phone:         identity.Phone,
		Gender:        identity.Gender,
		Age:           identity.Age(now),
		Height:        identity.Height,
		Weight:        identity.Weight,
		BMI:           identity.BMI,
		BloodPressure: identity.BloodPressure,
		Personality:   identity.Personality,
		WorkIntensity: identity.WorkIntensity,
		HistoryLength: identity.HistoryLength,
		CreatedAt:     identity.CreatedAt,
		UpdatedAt:     identity.UpdatedAt,
	}

	if identity.BirthDate != nil {
		birthDate := identity.BirthDate.Format("2006-01-02")
		response.BirthDate = &birthDate
	}

	if len(identity.Visits) > 0 {
		response.Visits = VisitsToResponses(identity.Visits)
	}

	return response
}

func PatientsToResponses(identities []entity.PatientIdentity, now time.Time) []dto.PatientResponse {
	responses := make([]dto.PatientResponse, len(identities))
	for i := range identities {
		responses[i] = *PatientToResponse(&identities[i], now)
	}
	return responses
}

func RegistrationToResponse(result *usecase.IdentityResult, now time.Time) *dto.RegistrationResponse {
	return &dto.RegistrationResponse{
		Patient:       *PatientToResponse(result.Identity, now),
		Created:       result.Created,
		HistoryLength: result.HistoryLength,
	}
}

func VisitToResponse(visit *entity.VisitRecord) *dto.VisitResponse {
	if visit == nil {
		return nil
	}

	return &dto.VisitResponse{
		ID:               visit.ID,
		Seq:              visit.Seq,
		MeasurementDate:  visit.MeasurementDate,
		PulseWave:        nonNilMap(visit.PulseWave),
		StressCategories: nonNilList(visit.StressCategories),
		StressScore:      visit.StressScore,
		StressLevel:      visit.StressLevel,
		Symptoms:         nonNilList(visit.Symptoms),
		Drugs:            nonNilList(visit.Drugs),
		Preferences:      nonNilList(visit.Preferences),
		Allergies:        nonNilList(visit.Allergies),
		SideEffects:      nonNilList(visit.SideEffects),
		Memo:             visit.Memo,
		CreatedAt:        visit.CreatedAt,
	}
}

func VisitsToResponses(visits []entity.VisitRecord) []dto.VisitResponse {
	responses := make([]dto.VisitResponse, len(visits))
	for i := range visits {
		responses[i] = *VisitToResponse(&visits[i])
	}
	return responses
}

func nonNilList(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func nonNilMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}
