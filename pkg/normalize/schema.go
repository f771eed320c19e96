package normalize

import "github.com/aretw0/transferdesk/pkg/domain"

// Relation is a nested field that holds one or many related entities.
type Relation struct {
	Key    string
	Schema *Schema
	Many   bool
}

// Schema describes an entity type and the relations to walk inside it.
type Schema struct {
	Entity    domain.EntityType
	Relations []Relation
}

// One declares a single nested entity under key.
func One(key string, s *Schema) Relation {
	return Relation{Key: key, Schema: s}
}

// List declares a list of nested entities under key.
func List(key string, s *Schema) Relation {
	return Relation{Key: key, Schema: s, Many: true}
}

// Fixed schemas of the platform API.
var (
	UserSchema = &Schema{Entity: domain.EntityUsers}

	CreditTransferSchema = &Schema{
		Entity: domain.EntityCreditTransfers,
		Relations: []Relation{
			One("sender_user", UserSchema),
			One("recipient_user", UserSchema),
		},
	}

	TransferAccountSchema = &Schema{
		Entity: domain.EntityTransferAccounts,
		Relations: []Relation{
			One("primary_user", UserSchema),
			List("credit_sends", CreditTransferSchema),
			List("credit_receives", CreditTransferSchema),
		},
	}
)
