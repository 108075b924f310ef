package processors

import (
	"testing"

	"github.com/username/budgetfolio/backend/src/models"
)

func TestClassifyPriorityAndRules(t *testing.T) {
	classifier := NewExpenseClassifier(DefaultProviderRegistry())

	tests := []struct {
		name    string
		expense models.Expense
		want    models.ExpenseClass
	}{
		{
			name: "credit card wins over loan pattern",
			expense: models.Expense{
				Description:   "Rata 12/24 - Prestito Arredamento",
				Amount:        250,
				PaymentMethod: models.PaymentCartaCredito,
			},
			want: models.ClassCreditCard,
		},
		{
			name: "credit card wins over bill type",
			expense: models.Expense{
				Description:   "Bolletta luce",
				BillType:      "luce",
				Amount:        80,
				PaymentMethod: models.PaymentCartaCredito,
			},
			want: models.ClassCreditCard,
		},
		{
			name: "explicit bill type",
			expense: models.Expense{
				Description:   "Fattura gas dicembre",
				BillType:      "gas",
				PaymentMethod: models.PaymentBonifico,
				Amount:        95,
			},
			want: models.ClassUtilityBill,
		},
		{
			name: "bill type altro falls through",
			expense: models.Expense{
				Description:   "Conguaglio condominio",
				BillType:      "altro",
				PaymentMethod: models.PaymentBonifico,
				Amount:        60,
			},
			want: models.ClassVariable,
		},
		{
			name: "known provider in description",
			expense: models.Expense{
				Description:   "Bolletta Enel Energia",
				PaymentMethod: models.PaymentBonifico,
				Amount:        120,
			},
			want: models.ClassUtilityBill,
		},
		{
			name: "provider name must be a whole word",
			expense: models.Expense{
				Description:   "Regalo sentimentale",
				PaymentMethod: models.PaymentBancomat,
				Amount:        45,
			},
			want: models.ClassVariable,
		},
		{
			name: "telecom provider",
			expense: models.Expense{
				Description:   "Ricarica TIM",
				PaymentMethod: models.PaymentBancomat,
				Amount:        20,
			},
			want: models.ClassUtilityBill,
		},
		{
			name: "installment pattern",
			expense: models.Expense{
				Description:   "Rata 3/48 - Prestito Auto",
				PaymentMethod: models.PaymentBonifico,
				Amount:        200,
			},
			want: models.ClassFixedLoan,
		},
		{
			name: "loan keyword above threshold",
			expense: models.Expense{
				Description:   "Mutuo casa novembre",
				PaymentMethod: models.PaymentBonifico,
				Amount:        650,
			},
			want: models.ClassFixedLoan,
		},
		{
			name: "loan keyword below threshold",
			expense: models.Expense{
				Description:   "Prestito personale",
				PaymentMethod: models.PaymentBonifico,
				Amount:        25,
			},
			want: models.ClassVariable,
		},
		{
			name: "loan exclusion keyword",
			expense: models.Expense{
				Description:   "Assicurazione con finanziamento",
				PaymentMethod: models.PaymentBonifico,
				Amount:        90,
			},
			want: models.ClassVariable,
		},
		{
			name: "known lender",
			expense: models.Expense{
				Description:   "Younited addebito mensile rata",
				PaymentMethod: models.PaymentBonifico,
				Amount:        150,
			},
			want: models.ClassFixedLoan,
		},
		{
			name: "finance category parent",
			expense: models.Expense{
				Description:    "Addebito",
				CategoryParent: "finanza_obblighi",
				PaymentMethod:  models.PaymentBonifico,
				Amount:         110,
			},
			want: models.ClassFixedLoan,
		},
		{
			name: "streaming provider is a subscription, not a bill",
			expense: models.Expense{
				Description:   "Netflix",
				PaymentMethod: models.PaymentBancomat,
				Amount:        13,
			},
			want: models.ClassFixedSub,
		},
		{
			name: "explicit subscription type",
			expense: models.Expense{
				Description:      "Addebito mensile",
				SubscriptionType: "palestra",
				PaymentMethod:    models.PaymentBancomat,
				Amount:           40,
			},
			want: models.ClassFixedSub,
		},
		{
			name: "subscription keyword",
			expense: models.Expense{
				Description:   "Abbonamento palestra comunale",
				PaymentMethod: models.PaymentBancomat,
				Amount:        35,
			},
			want: models.ClassFixedSub,
		},
		{
			name: "default variable",
			expense: models.Expense{
				Description:   "Cena fuori",
				PaymentMethod: models.PaymentContanti,
				Amount:        55,
			},
			want: models.ClassVariable,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := classifier.Classify(tc.expense)
			if got != tc.want {
				t.Errorf("Classify() = %q, want %q", got, tc.want)
			}
			// Classification is deterministic: a second call must agree.
			if again := classifier.Classify(tc.expense); again != got {
				t.Errorf("Classify() not deterministic: %q then %q", got, again)
			}
		})
	}
}

func TestLegacyCategoryNormalization(t *testing.T) {
	e := models.Expense{Description: "Vecchio abbonamento", Category: "abbonamenti", Amount: 15}
	e.Normalize()
	if e.CategoryParent != "abbonamenti" {
		t.Fatalf("Normalize() parent = %q, want %q", e.CategoryParent, "abbonamenti")
	}

	classifier := NewExpenseClassifier(DefaultProviderRegistry())
	if got := classifier.Classify(e); got != models.ClassFixedSub {
		t.Errorf("Classify(normalized legacy category) = %q, want %q", got, models.ClassFixedSub)
	}

	// An already-normalized expense is left untouched.
	e2 := models.Expense{Category: "abbonamenti", CategoryParent: "casa"}
	e2.Normalize()
	if e2.CategoryParent != "casa" {
		t.Errorf("Normalize() overwrote existing parent: %q", e2.CategoryParent)
	}
}

func TestFamilyTransferDetectionIsInformational(t *testing.T) {
	registry := DefaultProviderRegistry()
	registry.Supporters = []string{"Maria"}
	classifier := NewExpenseClassifier(registry)

	linked := int64(7)
	tests := []struct {
		name    string
		expense models.Expense
		want    bool
	}{
		{"linked transfer id", models.Expense{Description: "Quota famiglia", LinkedTransferID: &linked}, true},
		{"family expense flag", models.Expense{Description: "Spesa comune", IsFamilyExpense: true}, true},
		{"supporter name", models.Expense{Description: "Bonifico a Maria"}, true},
		{"fixed category with transfer wording", models.Expense{Description: "Trasferimento budget casa", CategoryParent: "fissa"}, true},
		{"plain expense", models.Expense{Description: "Spesa supermercato"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifier.IsFamilyTransfer(tc.expense); got != tc.want {
				t.Errorf("IsFamilyTransfer() = %v, want %v", got, tc.want)
			}
			// Transfer detection never changes the bucket: these all stay variable.
			if class := classifier.Classify(tc.expense); class != models.ClassVariable {
				t.Errorf("Classify() = %q, want %q", class, models.ClassVariable)
			}
		})
	}
}
