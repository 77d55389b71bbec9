package domain

// Database — полное содержимое хранилища записей: коллекции users и apps.
// Сохраняется и читается целиком.
type Database struct {
	Users []User `json:"users"`
	Apps  []App  `json:"apps"`
}

// NewDatabase возвращает пустую базу с инициализированными коллекциями
func NewDatabase() *Database {
	return &Database{Users: []User{}, Apps: []App{}}
}

// Normalize заменяет nil-коллекции пустыми, чтобы в документе не появлялся null
func (db *Database) Normalize() {
	if db.Users == nil {
		db.Users = []User{}
	}
	if db.Apps == nil {
		db.Apps = []App{}
	}
}

// FindUserByID возвращает указатель на пользователя внутри коллекции или nil
func (db *Database) FindUserByID(id string) *User {
	for i := range db.Users {
		if db.Users[i].ID == id {
			return &db.Users[i]
		}
	}
	return nil
}

// FindUserByEmail ищет пользователя по email (с учетом регистра, как сохранено)
func (db *Database) FindUserByEmail(email string) *User {
	if email == "" {
		return nil
	}
	for i := range db.Users {
		if db.Users[i].Email == email {
			return &db.Users[i]
		}
	}
	return nil
}

// FindAppByID возвращает указатель на приложение внутри коллекции или nil
func (db *Database) FindAppByID(id string) *App {
	for i := range db.Apps {
		if db.Apps[i].ID == id {
			return &db.Apps[i]
		}
	}
	return nil
}
