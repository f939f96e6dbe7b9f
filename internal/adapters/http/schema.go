package httpadapter

import "github.com/AymaneHaj/Share-In/internal/core/domain"

func schemaField(key, label string) domain.Field {
	return domain.Field{Key: key, Label: label}
}

// DefaultSchema is the field layout the dev backend serves on /documents/schema.
func DefaultSchema() domain.Schema {
	return domain.Schema{
		domain.VehicleRegistration: {
			{
				Title: "Recto",
				Fields: []domain.Field{
					schemaField("registration_number", "Numéro d'immatriculation"),
					schemaField("owner_name_fr", "Propriétaire (Français)"),
					schemaField("owner_name_ar", "Propriétaire (العربية)"),
					schemaField("owner_address_fr", "Adresse (Français)"),
					schemaField("owner_address_ar", "Adresse (العربية)"),
					schemaField("usage", "Usage"),
					schemaField("first_registration_date", "1ère Mise en Circulation"),
					schemaField("first_registration_morocco_date", "M.C. au Maroc"),
					schemaField("expiry_date", "Fin de validité"),
					schemaField("vin", "N° de châssis (VIN)"),
					schemaField("make", "Marque"),
					schemaField("model", "Modèle"),
				},
			},
		},
		domain.DrivingLicense: {
			{
				Title: "Recto",
				Fields: []domain.Field{
					schemaField("first_name", "Prénom"),
					schemaField("last_name", "Nom"),
					schemaField("birth_date", "Date de naissance"),
					schemaField("birth_place_fr", "Lieu de naissance (Français)"),
					schemaField("birth_place_ar", "Lieu de naissance (العربية)"),
					schemaField("cin_number", "N° de la C.I.N."),
					schemaField("address_fr", "Adresse (Français)"),
					schemaField("address_ar", "Adresse (العربية)"),
					schemaField("license_number", "Permis N°"),
					schemaField("issue_date", "Date de délivrance"),
					schemaField("issue_place", "Lieu de délivrance"),
					schemaField("categories", "Catégories"),
					schemaField("expiry_date", "Date de fin de validité"),
				},
			},
		},
		domain.IdentityCard: {
			{
				Title: "Recto",
				Fields: []domain.Field{
					schemaField("card_number", "N° de la carte"),
					schemaField("last_name_fr", "Nom (Français)"),
					schemaField("last_name_ar", "Nom (العربية)"),
					schemaField("first_name_fr", "Prénom (Français)"),
					schemaField("first_name_ar", "Prénom (العربية)"),
					schemaField("birth_date", "Date de naissance"),
					schemaField("birth_place_fr", "Lieu de naissance (Français)"),
					schemaField("birth_place_ar", "Lieu de naissance (العربية)"),
					schemaField("expiry_date", "Date de fin de validité"),
					schemaField("sex", "Sexe"),
				},
			},
			{
				Title: "Verso",
				Fields: []domain.Field{
					schemaField("father_name_fr", "Nom du Père (Français)"),
					schemaField("father_name_ar", "Nom du Père (العربية)"),
					schemaField("mother_name_fr", "Nom de la Mère (Français)"),
					schemaField("mother_name_ar", "Nom de la Mère (العربية)"),
					schemaField("address_fr", "Adresse (Français)"),
					schemaField("address_ar", "Adresse (العربية)"),
					schemaField("can_number", "N° de Série / CAN (Optionnel)"),
				},
			},
		},
	}
}
