package sqldriver

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// textSize forces unbounded text columns on every dialect.
const textSize = 2147483647

var (
	// KnowledgeColumns holds the columns for the "knowledge" table.
	KnowledgeColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "question", Type: field.TypeString, Size: textSize},
		{Name: "answer", Type: field.TypeString, Size: textSize},
		{Name: "created_at", Type: field.TypeTime},
	}
	// KnowledgeTable holds the schema information for the "knowledge" table.
	KnowledgeTable = &schema.Table{
		Name:       "knowledge",
		Columns:    KnowledgeColumns,
		PrimaryKey: []*schema.Column{KnowledgeColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "knowledge_question",
				Unique:  false,
				Columns: []*schema.Column{KnowledgeColumns[1]},
			},
		},
	}

	// UsersColumns holds the columns for the "users" table.
	UsersColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 36},
		{Name: "username", Type: field.TypeString, Unique: true},
		{Name: "password_hash", Type: field.TypeString},
		{Name: "role", Type: field.TypeString, Default: "ROLE_USER"},
		{Name: "registered_at", Type: field.TypeTime},
		{Name: "last_login_at", Type: field.TypeTime, Nullable: true},
	}
	// UsersTable holds the schema information for the "users" table.
	UsersTable = &schema.Table{
		Name:       "users",
		Columns:    UsersColumns,
		PrimaryKey: []*schema.Column{UsersColumns[0]},
	}

	// HistoryColumns holds the columns for the "history" table.
	HistoryColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 36},
		{Name: "conversation_id", Type: field.TypeString},
		{Name: "question", Type: field.TypeString, Size: textSize},
		{Name: "answer", Type: field.TypeString, Size: textSize},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "user_id", Type: field.TypeString, Size: 36},
	}
	// HistoryTable holds the schema information for the "history" table.
	HistoryTable = &schema.Table{
		Name:       "history",
		Columns:    HistoryColumns,
		PrimaryKey: []*schema.Column{HistoryColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "history_users_history",
				Columns:    []*schema.Column{HistoryColumns[5]},
				RefColumns: []*schema.Column{UsersColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "history_conversation_id_created_at",
				Unique:  false,
				Columns: []*schema.Column{HistoryColumns[1], HistoryColumns[4]},
			},
			{
				Name:    "history_user_id_created_at",
				Unique:  false,
				Columns: []*schema.Column{HistoryColumns[5], HistoryColumns[4]},
			},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		KnowledgeTable,
		UsersTable,
		HistoryTable,
	}
)

func init() {
	HistoryTable.ForeignKeys[0].RefTable = UsersTable
}
