package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/task-tracker-api/internal/constants"
	"github.com/yukikurage/task-tracker-api/internal/models"
	"github.com/yukikurage/task-tracker-api/internal/repository"
	"github.com/yukikurage/task-tracker-api/internal/services"
	"github.com/yukikurage/task-tracker-api/internal/testutil"
	"gorm.io/gorm"
)

// TaskHandlerTestSuite defines the test suite for TaskHandler
type TaskHandlerTestSuite struct {
	suite.Suite
	db      *gorm.DB
	handler *TaskHandler

	alice *models.User
	bob   *models.User
}

// SetupTest runs before each test
func (suite *TaskHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	suite.db = testutil.NewDB(suite.T())
	taskService := services.NewTaskService(
		repository.NewTaskRepository(suite.db),
		repository.NewUserRepository(suite.db),
		nil,
		services.DefaultPolicies(),
	)
	suite.handler = NewTaskHandler(taskService)

	suite.alice = testutil.CreateUser(suite.T(), suite.db, "Alice", "alice@example.com")
	suite.bob = testutil.CreateUser(suite.T(), suite.db, "Bob", "bob@example.com")
}

// Helper function to create authenticated context
func (suite *TaskHandlerTestSuite) createAuthContext(method, url string, body any, userID string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != nil {
		data, err := json.Marshal(body)
		suite.Require().NoError(err)
		req = httptest.NewRequest(method, url, bytes.NewReader(data))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	if userID != "" {
		c.Set(constants.ContextKeyUserID, userID)
	}

	return c, w
}

// Helper function to set task context (simulates RequireTaskParam middleware)
func (suite *TaskHandlerTestSuite) setTaskContext(c *gin.Context, taskID string) {
	c.Set(constants.ContextKeyTaskID, taskID)
}

func (suite *TaskHandlerTestSuite) createTestTask(task models.Task) *models.Task {
	return testutil.CreateTask(suite.T(), suite.db, task)
}

func (suite *TaskHandlerTestSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// TestCreateTask_Success tests successful task creation
func (suite *TaskHandlerTestSuite) TestCreateTask_Success() {
	c, w := suite.createAuthContext("POST", "/api/v1/task/add-task", map[string]any{
		"title":        "New Task",
		"description":  "Task Description",
		"dueDate":      "2030-01-15",
		"priority":     "High",
		"status":       "Todo",
		"assignedToId": suite.bob.ID,
		"creatorId":    suite.bob.ID,
	}, suite.alice.ID)

	suite.handler.CreateTask(c)

	suite.Require().Equal(http.StatusCreated, w.Code)
	body := suite.decode(w)
	task := body["task"].(map[string]any)
	assert.Equal(suite.T(), "New Task", task["title"])
	assert.Equal(suite.T(), "2030-01-15", task["dueDate"])
	assert.Equal(suite.T(), suite.alice.ID, task["creatorId"])
	assert.Equal(suite.T(), suite.bob.ID, task["assignedToId"])
	assert.Equal(suite.T(), false, task["overdue"])
	assert.Equal(suite.T(), "Bob", task["assignedTo"].(map[string]any)["name"])
}

// TestCreateTask_MissingFields tests that every field is mandatory
func (suite *TaskHandlerTestSuite) TestCreateTask_MissingFields() {
	c, w := suite.createAuthContext("POST", "/api/v1/task/add-task", map[string]any{
		"title": "Only a title",
	}, suite.alice.ID)

	suite.handler.CreateTask(c)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "All fields are required", suite.decode(w)["message"])
}

// TestCreateTask_Unauthenticated tests that a missing caller is rejected first
func (suite *TaskHandlerTestSuite) TestCreateTask_Unauthenticated() {
	c, w := suite.createAuthContext("POST", "/api/v1/task/add-task", map[string]any{}, "")

	suite.handler.CreateTask(c)

	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

// TestCreateTask_InvalidRequest tests a malformed body
func (suite *TaskHandlerTestSuite) TestCreateTask_InvalidRequest() {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/api/v1/task/add-task", bytes.NewBufferString("{"))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(constants.ContextKeyUserID, suite.alice.ID)

	suite.handler.CreateTask(c)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestListTasks_Success tests listing all tasks
func (suite *TaskHandlerTestSuite) TestListTasks_Success() {
	suite.createTestTask(models.Task{Title: "First", CreatorID: suite.alice.ID, AssignedToID: suite.bob.ID})
	suite.createTestTask(models.Task{Title: "Second", CreatorID: suite.bob.ID, AssignedToID: suite.alice.ID})

	c, w := suite.createAuthContext("GET", "/api/v1/task/get-tasks", nil, suite.alice.ID)
	suite.handler.ListTasks(c)

	suite.Require().Equal(http.StatusOK, w.Code)
	body := suite.decode(w)
	assert.EqualValues(suite.T(), 2, body["count"])
	assert.Len(suite.T(), body["tasks"], 2)
}

// TestListMyTasks tests filtering by creator
func (suite *TaskHandlerTestSuite) TestListMyTasks() {
	mine := suite.createTestTask(models.Task{CreatorID: suite.alice.ID, AssignedToID: suite.bob.ID})
	suite.createTestTask(models.Task{CreatorID: suite.bob.ID, AssignedToID: suite.bob.ID})

	c, w := suite.createAuthContext("GET", "/api/v1/task/my-tasks", nil, suite.alice.ID)
	suite.handler.ListMyTasks(c)

	suite.Require().Equal(http.StatusOK, w.Code)
	tasks := suite.decode(w)["tasks"].([]any)
	suite.Require().Len(tasks, 1)
	assert.Equal(suite.T(), mine.ID, tasks[0].(map[string]any)["id"])
}

// TestListOverdueTasks tests the overdue listing and flag
func (suite *TaskHandlerTestSuite) TestListOverdueTasks() {
	past := time.Now().UTC().AddDate(0, 0, -3)
	overdue := suite.createTestTask(models.Task{DueDate: past, CreatorID: suite.alice.ID, AssignedToID: suite.bob.ID})
	suite.createTestTask(models.Task{DueDate: past, Status: models.TaskStatusCompleted, CreatorID: suite.alice.ID, AssignedToID: suite.bob.ID})

	c, w := suite.createAuthContext("GET", "/api/v1/task/overdue", nil, suite.bob.ID)
	suite.handler.ListOverdueTasks(c)

	suite.Require().Equal(http.StatusOK, w.Code)
	tasks := suite.decode(w)["tasks"].([]any)
	suite.Require().Len(tasks, 1)
	task := tasks[0].(map[string]any)
	assert.Equal(suite.T(), overdue.ID, task["id"])
	assert.Equal(suite.T(), true, task["overdue"])
}

// TestUpdateTask_Success tests a partial update
func (suite *TaskHandlerTestSuite) TestUpdateTask_Success() {
	task := suite.createTestTask(models.Task{Title: "Original", CreatorID: suite.alice.ID, AssignedToID: suite.bob.ID})

	c, w := suite.createAuthContext("PUT", "/api/v1/task/"+task.ID, map[string]any{
		"title":    "Updated",
		"priority": "Urgent",
	}, suite.bob.ID)
	suite.setTaskContext(c, task.ID)

	suite.handler.UpdateTask(c)

	suite.Require().Equal(http.StatusOK, w.Code)
	updated := suite.decode(w)["task"].(map[string]any)
	assert.Equal(suite.T(), "Updated", updated["title"])
	assert.Equal(suite.T(), "Urgent", updated["priority"])
	assert.Equal(suite.T(), "Test Description", updated["description"])
	assert.EqualValues(suite.T(), 2, updated["version"])
}

// TestUpdateTask_VersionConflict tests the optimistic concurrency check
func (suite *TaskHandlerTestSuite) TestUpdateTask_VersionConflict() {
	task := suite.createTestTask(models.Task{CreatorID: suite.alice.ID, AssignedToID: suite.bob.ID})

	c, w := suite.createAuthContext("PUT", "/api/v1/task/"+task.ID, map[string]any{
		"title":   "Updated",
		"version": 7,
	}, suite.alice.ID)
	suite.setTaskContext(c, task.ID)

	suite.handler.UpdateTask(c)

	assert.Equal(suite.T(), http.StatusConflict, w.Code)
	assert.Equal(suite.T(), "CONFLICT", suite.decode(w)["code"])
}

// TestUpdateTask_NotFound tests updating a missing task
func (suite *TaskHandlerTestSuite) TestUpdateTask_NotFound() {
	c, w := suite.createAuthContext("PUT", "/api/v1/task/x", map[string]any{"title": "x"}, suite.alice.ID)
	suite.setTaskContext(c, "00000000-0000-0000-0000-000000000000")

	suite.handler.UpdateTask(c)

	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

// TestUpdateTaskStatus tests that only the assignee can change status
func (suite *TaskHandlerTestSuite) TestUpdateTaskStatus() {
	task := suite.createTestTask(models.Task{Status: models.TaskStatusCompleted, CreatorID: suite.alice.ID, AssignedToID: suite.bob.ID})

	c, w := suite.createAuthContext("PATCH", "/api/v1/task/"+task.ID+"/status", map[string]any{"status": "Todo"}, suite.alice.ID)
	suite.setTaskContext(c, task.ID)
	suite.handler.UpdateTaskStatus(c)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	c, w = suite.createAuthContext("PATCH", "/api/v1/task/"+task.ID+"/status", map[string]any{"status": "Todo"}, suite.bob.ID)
	suite.setTaskContext(c, task.ID)
	suite.handler.UpdateTaskStatus(c)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.Equal(suite.T(), "Todo", suite.decode(w)["task"].(map[string]any)["status"])

	c, w = suite.createAuthContext("PATCH", "/api/v1/task/"+task.ID+"/status", map[string]any{"status": "Done"}, suite.bob.ID)
	suite.setTaskContext(c, task.ID)
	suite.handler.UpdateTaskStatus(c)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestDeleteTask_Success tests deleting as the creator, then again
func (suite *TaskHandlerTestSuite) TestDeleteTask_Success() {
	task := suite.createTestTask(models.Task{CreatorID: suite.alice.ID, AssignedToID: suite.bob.ID})

	c, w := suite.createAuthContext("DELETE", "/api/v1/task/"+task.ID, nil, suite.alice.ID)
	suite.setTaskContext(c, task.ID)
	suite.handler.DeleteTask(c)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	c, w = suite.createAuthContext("DELETE", "/api/v1/task/"+task.ID, nil, suite.alice.ID)
	suite.setTaskContext(c, task.ID)
	suite.handler.DeleteTask(c)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

// TestDeleteTask_NotCreator tests that only the creator can delete
func (suite *TaskHandlerTestSuite) TestDeleteTask_NotCreator() {
	task := suite.createTestTask(models.Task{CreatorID: suite.alice.ID, AssignedToID: suite.bob.ID})

	c, w := suite.createAuthContext("DELETE", "/api/v1/task/"+task.ID, nil, suite.bob.ID)
	suite.setTaskContext(c, task.ID)
	suite.handler.DeleteTask(c)

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
	assert.Equal(suite.T(), "FORBIDDEN", suite.decode(w)["code"])
}

// TestTaskHandlerTestSuite runs the test suite
func TestTaskHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(TaskHandlerTestSuite))
}
