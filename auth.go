package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func jwtSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "defaultsecret"
	}
	return []byte(secret)
}

func GenerateToken(u *User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": u.ID,
		"email":   u.Email,
		"role":    u.Role,
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret())
}

// ParseToken verifies the signature and returns the embedded user id.
func ParseToken(tokenString string) (uint, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret(), nil
	})
	if err != nil {
		return 0, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, errors.New("invalid token claims")
	}

	id, ok := claims["user_id"].(float64)
	if !ok {
		return 0, errors.New("missing user_id claim")
	}
	return uint(id), nil
}

// ========================
// SIGNUP HANDLER
// ========================

type SignupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"omitempty,oneof=USER TEMP_ADMIN SUPER_ADMIN"`
	Branch   string `json:"branch" binding:"required,oneof=CSE AIDS ECE EEE CIVIL MECH"`
	Year     int    `json:"year" binding:"required,min=1,max=4"`
	IsIEEE   bool   `json:"isIEEE"`
	IEEEID   string `json:"IEEE_ID"`
}

func Signup(c *gin.Context) {
	var body SignupRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		jsonError(c, http.StatusBadRequest, validationMessage(err))
		return
	}

	// IEEE members must carry a verified IEEE id
	if body.IsIEEE && body.IEEEID == "" {
		jsonError(c, http.StatusBadRequest, "IEEE_ID is required for IEEE members")
		return
	}

	var existing User
	if err := DB.Where("email = ?", body.Email).First(&existing).Error; err == nil {
		jsonError(c, http.StatusConflict, "User already exists")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Signup lookup error: %v", err)
		jsonError(c, http.StatusInternalServerError, "Server error")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Signup hash error: %v", err)
		jsonError(c, http.StatusInternalServerError, "Server error")
		return
	}

	role := body.Role
	if role == "" {
		role = RoleUser
	}

	user := User{
		Name:     body.Name,
		Email:    body.Email,
		Password: string(hashed),
		Role:     role,
		IsIEEE:   body.IsIEEE,
		Branch:   body.Branch,
		Year:     body.Year,
	}
	if body.IEEEID != "" {
		user.IEEEID = &body.IEEEID
	}

	if err := DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			jsonError(c, http.StatusConflict, "User already exists")
			return
		}
		log.Printf("Signup create error: %v", err)
		jsonError(c, http.StatusInternalServerError, "Server error")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"user":    user,
	})
}

// ========================
// LOGIN HANDLER
// ========================

func Login(c *gin.Context) {
	var req LoginRequest
	var user User

	if err := c.ShouldBindJSON(&req); err != nil {
		jsonError(c, http.StatusBadRequest, validationMessage(err))
		return
	}

	if err := DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			jsonError(c, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("Login lookup error: %v", err)
		jsonError(c, http.StatusInternalServerError, "Server error")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		jsonError(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := GenerateToken(&user)
	if err != nil {
		log.Printf("Login token error: %v", err)
		jsonError(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
}

// ========================
// SESSION INFO
// ========================

// GetMe returns the caller as resolved by AuthMiddleware, i.e. after any
// lazy demotion has been applied.
func GetMe(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		jsonError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func CheckAuth(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		jsonError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	c.JSON(http.StatusOK, gin.H{"loggedIn": true, "user": user})
}
