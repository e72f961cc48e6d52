package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"loanmanager/models"
)

const (
	usersCollection  = "users"
	loansCollection  = "loans"
	adminsCollection = "admins"
)

// MongoStore implements Store on MongoDB. Users carry their loan references
// as an array of ObjectIDs. Transactions need a replica set.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// OpenMongo connects to uri and selects the named database.
func OpenMongo(ctx context.Context, uri, name string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoStore{client: client, db: client.Database(name)}, nil
}

func (s *MongoStore) Repos() Repos { return newMongoRepos(s.db) }

// WithinTx runs fn in a session transaction. fn must pass the ctx it is
// given to every repository call so they join the transaction.
func (s *MongoStore) WithinTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	repos := newMongoRepos(s.db)
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, repos)
	})
	return err
}

func (s *MongoStore) Close(ctx context.Context) error { return s.client.Disconnect(ctx) }

// EnsureIndexes creates the unique email indexes and the loan lookup indexes.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	if _, err := s.db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}

	if _, err := s.db.Collection(adminsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}

	_, err := s.db.Collection(loansCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "creator", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "timestamp", Value: -1}}},
	})
	return err
}

// SeedAdmin adds email to the admin allow-list if it is not there yet.
func (s *MongoStore) SeedAdmin(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}
	_, err := s.db.Collection(adminsCollection).UpdateOne(ctx,
		bson.M{"email": email},
		bson.M{"$setOnInsert": bson.M{"email": email}},
		options.Update().SetUpsert(true),
	)
	return err
}

func newMongoRepos(d *mongo.Database) Repos {
	return Repos{
		Users:  &mongoUsers{c: d.Collection(usersCollection)},
		Loans:  &mongoLoans{c: d.Collection(loansCollection)},
		Admins: &mongoAdmins{c: d.Collection(adminsCollection)},
	}
}

func toOID(hex string) (primitive.ObjectID, error) {
	if hex == "" {
		return primitive.NilObjectID, errors.New("empty id")
	}
	return primitive.ObjectIDFromHex(hex)
}

func translateMongoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	default:
		return err
	}
}

// --- users ---

type mongoUsers struct{ c *mongo.Collection }

type userDoc struct {
	ID        primitive.ObjectID   `bson:"_id"`
	Name      string               `bson:"name"`
	Email     string               `bson:"email"`
	Loans     []primitive.ObjectID `bson:"loans"`
	PushToken string               `bson:"fcmToken,omitempty"`
	CreatedAt time.Time            `bson:"createdAt"`
}

func (d userDoc) toModel() *models.User {
	loans := make([]string, 0, len(d.Loans))
	for _, id := range d.Loans {
		loans = append(loans, id.Hex())
	}
	return &models.User{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Email:     d.Email,
		Loans:     loans,
		PushToken: d.PushToken,
		CreatedAt: d.CreatedAt,
	}
}

func (r *mongoUsers) Create(ctx context.Context, u *models.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	doc := userDoc{
		ID:        primitive.NewObjectID(),
		Name:      u.Name,
		Email:     u.Email,
		Loans:     []primitive.ObjectID{},
		PushToken: u.PushToken,
		CreatedAt: u.CreatedAt,
	}
	if _, err := r.c.InsertOne(ctx, doc); err != nil {
		return translateMongoError(err)
	}
	u.ID = doc.ID.Hex()
	u.Loans = []string{}
	return nil
}

func (r *mongoUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := toOID(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *mongoUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *mongoUsers) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDoc
	if err := r.c.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translateMongoError(err)
	}
	return doc.toModel(), nil
}

func (r *mongoUsers) update(ctx context.Context, id string, update bson.M) error {
	oid, err := toOID(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return translateMongoError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoUsers) SetPushToken(ctx context.Context, id, token string) error {
	return r.update(ctx, id, bson.M{"$set": bson.M{"fcmToken": token}})
}

func (r *mongoUsers) AppendLoan(ctx context.Context, userID, loanID string) error {
	loanOID, err := toOID(loanID)
	if err != nil {
		return fmt.Errorf("loan id: %w", err)
	}
	return r.update(ctx, userID, bson.M{"$push": bson.M{"loans": loanOID}})
}

func (r *mongoUsers) RemoveLoan(ctx context.Context, userID, loanID string) error {
	loanOID, err := toOID(loanID)
	if err != nil {
		return fmt.Errorf("loan id: %w", err)
	}
	return r.update(ctx, userID, bson.M{"$pull": bson.M{"loans": loanOID}})
}

// --- loans ---

type mongoLoans struct{ c *mongo.Collection }

// loanDoc keeps the verified flag alongside status so older readers of the
// collection keep working.
type loanDoc struct {
	ID            primitive.ObjectID `bson:"_id"`
	Title         string             `bson:"title"`
	ApplicantName string             `bson:"applicantName"`
	Address       string             `bson:"address"`
	Phone         string             `bson:"phone"`
	Email         string             `bson:"email"`
	Amount        string             `bson:"amount"`
	Installment   string             `bson:"installment"`
	Fixed         bool               `bson:"fixed"`
	Verified      bool               `bson:"verified"`
	Status        string             `bson:"status"`
	AdminComment  string             `bson:"adminComment,omitempty"`
	Timestamp     time.Time          `bson:"timestamp"`
	Creator       primitive.ObjectID `bson:"creator"`
}

func newLoanDoc(l *models.LoanApplication) (loanDoc, error) {
	creator, err := toOID(l.CreatorID)
	if err != nil {
		return loanDoc{}, fmt.Errorf("creator id: %w", err)
	}
	return loanDoc{
		Title:         l.Title,
		ApplicantName: l.ApplicantName,
		Address:       l.Address,
		Phone:         l.Phone,
		Email:         l.Email,
		Amount:        l.Amount,
		Installment:   l.Installment,
		Fixed:         l.Fixed,
		Verified:      l.Verified(),
		Status:        string(l.Status),
		AdminComment:  l.AdminComment,
		Timestamp:     l.Timestamp,
		Creator:       creator,
	}, nil
}

func (d loanDoc) toModel() models.LoanApplication {
	loan := models.LoanApplication{
		ID: d.ID.Hex(),
		LoanFields: models.LoanFields{
			Title:         d.Title,
			ApplicantName: d.ApplicantName,
			Address:       d.Address,
			Phone:         d.Phone,
			Email:         d.Email,
			Amount:        d.Amount,
			Installment:   d.Installment,
			Fixed:         d.Fixed,
		},
		Status:       models.LoanStatus(d.Status),
		AdminComment: d.AdminComment,
		Timestamp:    d.Timestamp,
		CreatorID:    d.Creator.Hex(),
	}
	if !loan.Status.Valid() {
		loan.ApplyVerified(d.Verified)
	}
	return loan
}

func (r *mongoLoans) Create(ctx context.Context, l *models.LoanApplication) error {
	if l.Timestamp.IsZero() {
		l.Timestamp = time.Now().UTC()
	}
	if l.Status == "" {
		l.Status = models.LoanPending
	}
	doc, err := newLoanDoc(l)
	if err != nil {
		return err
	}
	doc.ID = primitive.NewObjectID()
	if _, err := r.c.InsertOne(ctx, doc); err != nil {
		return translateMongoError(err)
	}
	l.ID = doc.ID.Hex()
	return nil
}

func (r *mongoLoans) GetByID(ctx context.Context, id string) (*models.LoanApplication, error) {
	oid, err := toOID(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var doc loanDoc
	if err := r.c.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, translateMongoError(err)
	}
	loan := doc.toModel()
	return &loan, nil
}

func (r *mongoLoans) Update(ctx context.Context, l *models.LoanApplication) error {
	oid, err := toOID(l.ID)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"title":         l.Title,
		"applicantName": l.ApplicantName,
		"address":       l.Address,
		"phone":         l.Phone,
		"email":         l.Email,
		"amount":        l.Amount,
		"installment":   l.Installment,
		"fixed":         l.Fixed,
		"status":        string(l.Status),
		"verified":      l.Verified(),
		"adminComment":  l.AdminComment,
	}})
	if err != nil {
		return translateMongoError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoLoans) SetDecision(ctx context.Context, id string, status models.LoanStatus, comment string) (*models.LoanApplication, error) {
	oid, err := toOID(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var doc loanDoc
	err = r.c.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{
			"status":       string(status),
			"verified":     status == models.LoanApproved,
			"adminComment": comment,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return nil, translateMongoError(err)
	}
	loan := doc.toModel()
	return &loan, nil
}

func (r *mongoLoans) Delete(ctx context.Context, id string) error {
	oid, err := toOID(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.c.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return translateMongoError(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoLoans) ListByCreator(ctx context.Context, creatorID string) ([]models.LoanApplication, error) {
	oid, err := toOID(creatorID)
	if err != nil {
		return []models.LoanApplication{}, nil
	}
	return r.find(ctx, bson.M{"creator": oid})
}

func (r *mongoLoans) ListByStatus(ctx context.Context, status models.LoanStatus) ([]models.LoanApplication, error) {
	return r.find(ctx, statusFilter(status))
}

// statusFilter matches documents in status, including documents written
// without a status field, which are read from verified and adminComment the
// same way toModel reads them.
func statusFilter(status models.LoanStatus) bson.M {
	noStatus := bson.M{"status": bson.M{"$in": bson.A{nil, ""}}}
	noComment := bson.A{nil, ""}

	switch status {
	case models.LoanApproved:
		noStatus["verified"] = true
	case models.LoanRejected:
		noStatus["verified"] = bson.M{"$ne": true}
		noStatus["adminComment"] = bson.M{"$nin": noComment}
	case models.LoanPending:
		noStatus["verified"] = bson.M{"$ne": true}
		noStatus["adminComment"] = bson.M{"$in": noComment}
	default:
		return bson.M{"status": string(status)}
	}
	return bson.M{"$or": bson.A{bson.M{"status": string(status)}, noStatus}}
}

func (r *mongoLoans) find(ctx context.Context, filter bson.M) ([]models.LoanApplication, error) {
	cur, err := r.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var docs []loanDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	loans := make([]models.LoanApplication, 0, len(docs))
	for _, d := range docs {
		loans = append(loans, d.toModel())
	}
	return loans, nil
}

func (r *mongoLoans) CountByStatus(ctx context.Context, status models.LoanStatus) (int64, error) {
	return r.c.CountDocuments(ctx, statusFilter(status))
}

// --- admins ---

type mongoAdmins struct{ c *mongo.Collection }

type adminDoc struct {
	ID    primitive.ObjectID `bson:"_id"`
	Email string             `bson:"email"`
}

func (r *mongoAdmins) List(ctx context.Context) ([]models.Admin, error) {
	cur, err := r.c.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	var docs []adminDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	admins := make([]models.Admin, 0, len(docs))
	for _, d := range docs {
		admins = append(admins, models.Admin{ID: d.ID.Hex(), Email: d.Email})
	}
	return admins, nil
}

func (r *mongoAdmins) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var doc adminDoc
	if err := r.c.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		return nil, translateMongoError(err)
	}
	return &models.Admin{ID: doc.ID.Hex(), Email: doc.Email}, nil
}

func (r *mongoAdmins) Create(ctx context.Context, a *models.Admin) error {
	doc := adminDoc{ID: primitive.NewObjectID(), Email: a.Email}
	if _, err := r.c.InsertOne(ctx, doc); err != nil {
		return translateMongoError(err)
	}
	a.ID = doc.ID.Hex()
	return nil
}

func (r *mongoAdmins) Delete(ctx context.Context, id string) error {
	oid, err := toOID(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.c.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return translateMongoError(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
